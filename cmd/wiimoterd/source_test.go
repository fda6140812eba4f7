package main

import "testing"

func TestSlotSource_FirstBrowsingSlotWins(t *testing.T) {
	s := newSlotSource()

	if _, ok := s.Poll(); ok {
		t.Fatalf("empty source should report no sample")
	}

	s.update(2, Sample{ScreenX: 2}, true)
	s.update(1, Sample{ScreenX: 1}, false)
	s.update(3, Sample{ScreenX: 3}, true)

	got, ok := s.Poll()
	if !ok || got.ScreenX != 2 {
		t.Fatalf("Poll() = %+v, %v; want slot 2", got, ok)
	}

	s.update(0, Sample{ScreenX: 0.5}, true)
	if got, _ := s.Poll(); got.ScreenX != 0.5 {
		t.Fatalf("slot 0 should win once browsing, got %+v", got)
	}

	s.update(0, Sample{ScreenX: 0.5}, false)
	if got, _ := s.Poll(); got.ScreenX != 2 {
		t.Fatalf("slot 0 left range, expected slot 2, got %+v", got)
	}
}

func TestSlotSource_OutOfRangeSlotIgnored(t *testing.T) {
	s := newSlotSource()
	if s.update(-1, Sample{}, true) || s.update(maxSourceSlots, Sample{}, true) {
		t.Fatalf("out-of-range slots must be rejected")
	}
	if _, ok := s.Poll(); ok {
		t.Fatalf("no slot should be readable")
	}
}

func TestEvdevAssembler_CommitsOnSynReport(t *testing.T) {
	a := newEvdevAssembler(0.01)

	feed := []inputEvent{
		{Type: EV_ABS, Code: ABS_X, Value: 640},
		{Type: EV_ABS, Code: ABS_Y, Value: 360},
		{Type: EV_ABS, Code: ABS_DISTANCE, Value: 150},
		{Type: EV_ABS, Code: ABS_TILT_X, Value: 3},
		{Type: EV_ABS, Code: ABS_TILT_Y, Value: -4},
	}
	for _, ev := range feed {
		if _, _, commit := a.handle(ev); commit {
			t.Fatalf("committed before SYN_REPORT on %+v", ev)
		}
	}

	s, browsing, commit := a.handle(inputEvent{Type: EV_SYN, Code: SYN_REPORT})
	if !commit || !browsing {
		t.Fatalf("expected a browsing commit, got commit=%v browsing=%v", commit, browsing)
	}
	if s.ScreenX != 640 || s.ScreenY != 360 || s.RollX != 3 || s.RollY != -4 {
		t.Fatalf("unexpected sample: %+v", s)
	}
	if s.Distance < 1.499 || s.Distance > 1.501 {
		t.Fatalf("distance = %v, want 1.5", s.Distance)
	}

	// An empty report commits nothing.
	if _, _, commit := a.handle(inputEvent{Type: EV_SYN, Code: SYN_REPORT}); commit {
		t.Fatalf("empty report should not commit")
	}
}

func TestEvdevAssembler_Proximity(t *testing.T) {
	a := newEvdevAssembler(1)

	a.handle(inputEvent{Type: EV_KEY, Code: BTN_TOOL_PEN, Value: evValuePress})
	a.handle(inputEvent{Type: EV_ABS, Code: ABS_X, Value: 10})
	if _, browsing, commit := a.handle(inputEvent{Type: EV_SYN, Code: SYN_REPORT}); !commit || !browsing {
		t.Fatalf("pen in range should be browsing")
	}

	a.handle(inputEvent{Type: EV_KEY, Code: BTN_TOOL_PEN, Value: evValueRelease})
	if _, browsing, commit := a.handle(inputEvent{Type: EV_SYN, Code: SYN_REPORT}); !commit || browsing {
		t.Fatalf("pen out of range should commit a non-browsing reading")
	}
}

func TestEvdevAssembler_IgnoresUnknownAxes(t *testing.T) {
	a := newEvdevAssembler(1)
	a.handle(inputEvent{Type: EV_ABS, Code: 0x28, Value: 1}) // ABS_MISC
	if _, _, commit := a.handle(inputEvent{Type: EV_SYN, Code: SYN_REPORT}); commit {
		t.Fatalf("unknown axis should not mark the report dirty")
	}
}
