package main

// Region is a named screen rectangle that acts as a watch target.
type Region struct {
	Name   string  `yaml:"name"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

func (r Region) contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// regionTracker turns pointer positions into enter/leave notifications.
// Regions are checked in order; the first one containing the pointer wins.
//
// This is intended to be called only by the daemon goroutine (single-owner).
type regionTracker struct {
	regions []Region
	current string
}

func newRegionTracker(regions []Region) *regionTracker {
	return &regionTracker{regions: regions}
}

// update feeds the latest pointer sample. ok is false when no device is
// browsing, which counts as leaving every region. It returns the region left
// and the region entered, either of which may be empty.
func (t *regionTracker) update(s Sample, ok bool) (left, entered string) {
	next := ""
	if ok {
		for _, r := range t.regions {
			if r.contains(s.ScreenX, s.ScreenY) {
				next = r.Name
				break
			}
		}
	}
	if next == t.current {
		return "", ""
	}
	left, entered = t.current, next
	t.current = next
	return left, entered
}
