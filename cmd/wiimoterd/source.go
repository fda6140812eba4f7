package main

// slotReading is the latest committed reading of one device slot.
type slotReading struct {
	sample   Sample
	seen     bool // at least one reading has been committed
	browsing bool // pointer is in range and usable
}

// slotSource is a SampleSource over a fixed set of device slots. Poll returns
// the reading of the first browsing slot, scanning slots in order.
//
// This is intended to be used only by the daemon goroutine (single-owner).
type slotSource struct {
	slots [maxSourceSlots]slotReading
}

func newSlotSource() *slotSource {
	return &slotSource{}
}

// Poll implements SampleSource.
func (s *slotSource) Poll() (Sample, bool) {
	for i := range s.slots {
		if s.slots[i].seen && s.slots[i].browsing {
			return s.slots[i].sample, true
		}
	}
	return Sample{}, false
}

// update commits a reading for a slot. Out-of-range slots are ignored.
func (s *slotSource) update(slot int, sample Sample, browsing bool) bool {
	if slot < 0 || slot >= len(s.slots) {
		return false
	}
	s.slots[slot] = slotReading{sample: sample, seen: true, browsing: browsing}
	return true
}

// evdevAssembler folds the raw EV_ABS/EV_KEY stream of one device into
// readings, committing on SYN_REPORT.
//
// Devices that report a proximity tool key are browsing only while the tool
// is in range; other devices are browsing from their first report.
type evdevAssembler struct {
	pending       Sample
	dirty         bool
	hasProximity  bool
	inProximity   bool
	distanceScale float64
}

func newEvdevAssembler(distanceScale float64) *evdevAssembler {
	if distanceScale == 0 {
		distanceScale = 1
	}
	return &evdevAssembler{distanceScale: distanceScale}
}

// handle consumes one input event. When the event completes a report it
// returns the reading and browsing state to commit.
func (a *evdevAssembler) handle(ev inputEvent) (sample Sample, browsing bool, commit bool) {
	switch ev.Type {
	case EV_ABS:
		v := float64(ev.Value)
		switch ev.Code {
		case ABS_X:
			a.pending.ScreenX = v
		case ABS_Y:
			a.pending.ScreenY = v
		case ABS_DISTANCE:
			a.pending.Distance = v * a.distanceScale
		case ABS_TILT_X:
			a.pending.RollX = v
		case ABS_TILT_Y:
			a.pending.RollY = v
		default:
			return Sample{}, false, false
		}
		a.dirty = true

	case EV_KEY:
		if ev.Code == BTN_TOOL_PEN || ev.Code == BTN_TOOL_RUBBER {
			a.hasProximity = true
			a.inProximity = ev.Value != evValueRelease
			a.dirty = true
		}

	case EV_SYN:
		if ev.Code != SYN_REPORT || !a.dirty {
			return Sample{}, false, false
		}
		a.dirty = false
		return a.pending, !a.hasProximity || a.inProximity, true
	}
	return Sample{}, false, false
}
