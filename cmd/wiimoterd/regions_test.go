package main

import "testing"

func TestRegionTracker_EnterLeave(t *testing.T) {
	tr := newRegionTracker([]Region{
		{Name: "left", X: 0, Y: 0, Width: 100, Height: 100},
		{Name: "right", X: 100, Y: 0, Width: 100, Height: 100},
	})

	steps := []struct {
		s             Sample
		ok            bool
		left, entered string
	}{
		{Sample{ScreenX: 10, ScreenY: 10}, true, "", "left"},
		{Sample{ScreenX: 20, ScreenY: 10}, true, "", ""},
		{Sample{ScreenX: 100, ScreenY: 10}, true, "left", "right"}, // right edge is exclusive
		{Sample{ScreenX: 300, ScreenY: 10}, true, "right", ""},
		{Sample{ScreenX: 50, ScreenY: 50}, true, "", "left"},
		{Sample{}, false, "left", ""}, // no browsing device
	}
	for i, st := range steps {
		left, entered := tr.update(st.s, st.ok)
		if left != st.left || entered != st.entered {
			t.Fatalf("step %d: update = (%q, %q), want (%q, %q)", i, left, entered, st.left, st.entered)
		}
	}
}

func TestRegionTracker_FirstMatchWins(t *testing.T) {
	tr := newRegionTracker([]Region{
		{Name: "outer", X: 0, Y: 0, Width: 500, Height: 500},
		{Name: "inner", X: 10, Y: 10, Width: 10, Height: 10},
	})
	if _, entered := tr.update(Sample{ScreenX: 15, ScreenY: 15}, true); entered != "outer" {
		t.Fatalf("entered = %q, want outer", entered)
	}
}
