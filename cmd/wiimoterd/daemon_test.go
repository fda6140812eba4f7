package main

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// newTestDaemon returns a daemon on a manual scheduler with the hid-wiimote buttons.
func newTestDaemon(t *testing.T, regions []Region) (*daemon, *manualScheduler, chan StreamBroadcast) {
	t.Helper()
	sched := &manualScheduler{}
	broadcasts := make(chan StreamBroadcast, 64)
	d := newDaemon(daemonOptions{
		Watch:         DefaultWatchConfig(),
		Buttons:       buttonPresets["hid-wiimote"],
		Regions:       regions,
		DistanceScale: 1,
		Scheduler:     sched,
		Broadcasts:    broadcasts,
		Logger:        quietLogger(),
	})
	return d, sched, broadcasts
}

// drain returns everything currently queued on ch.
func drain(ch chan StreamBroadcast) []StreamBroadcast {
	var out []StreamBroadcast
	for {
		select {
		case b := <-ch:
			out = append(out, b)
		default:
			return out
		}
	}
}

func wiiEventNames(bs []StreamBroadcast) []string {
	var out []string
	for _, b := range bs {
		if ev, ok := b.(WiiEvent); ok {
			out = append(out, ev.Name)
		}
	}
	return out
}

func TestDaemon_IPCDrivenSession(t *testing.T) {
	d, sched, broadcasts := newTestDaemon(t, nil)

	d.handle(WatchBegin{Target: "canvas"})
	got := drain(broadcasts)
	if len(got) != 1 {
		t.Fatalf("expected one session notice, got %v", got)
	}
	started, ok := got[0].(SessionNotice)
	if !ok || !started.Started || started.Target != "canvas" {
		t.Fatalf("unexpected notice: %#v", got[0])
	}

	d.handle(SampleReport{Slot: 1, ScreenX: 0, ScreenY: 0, Distance: 1})
	sched.tick()
	d.handle(SampleReport{Slot: 1, ScreenX: 200, ScreenY: 0, Distance: 1})
	sched.tick()

	events := drain(broadcasts)
	names := wiiEventNames(events)
	if len(names) != 5 || names[2] != "wiiRight" {
		t.Fatalf("unexpected events: %v", names)
	}
	ev := events[2].(WiiEvent)
	if ev.Target != "canvas" || ev.Session != started.Session || ev.Payload != 200.0 {
		t.Fatalf("unexpected wii event: %#v", ev)
	}

	d.handle(WatchEnd{})
	stopped := drain(broadcasts)
	if len(stopped) != 1 || stopped[0].(SessionNotice).Reason != "stopped" {
		t.Fatalf("expected stop notice, got %v", stopped)
	}
	if sched.running() != 0 {
		t.Fatalf("timer still running after watch_end")
	}
}

func TestDaemon_PointerEnterLeave(t *testing.T) {
	d, _, _ := newTestDaemon(t, nil)

	d.handle(PointerEnter{Target: "a"})
	d.handle(PointerLeave{Target: "b"})
	if !d.watcher.Active() {
		t.Fatalf("leave on another target stopped the session")
	}
	d.handle(PointerLeave{Target: "a"})
	if d.watcher.Active() {
		t.Fatalf("leave on the watched target did not stop the session")
	}
}

func TestDaemon_TargetsCreatedOnce(t *testing.T) {
	d, _, _ := newTestDaemon(t, nil)
	if d.target("x") != d.target("x") {
		t.Fatalf("target should be reused by name")
	}
}

func TestDaemon_TargetsStayBounded(t *testing.T) {
	d, _, _ := newTestDaemon(t, nil)

	for i := 0; i < 100; i++ {
		d.handle(PointerLeave{Target: fmt.Sprintf("gone-%d", i)})
	}
	if len(d.targets) != 0 {
		t.Fatalf("leave notifications created %d targets", len(d.targets))
	}

	d.handle(WatchBegin{Target: "canvas"})
	for i := 0; i < 100; i++ {
		// Ignored while canvas is watched.
		d.handle(WatchBegin{Target: fmt.Sprintf("other-%d", i)})
	}
	if len(d.targets) > 2 {
		t.Fatalf("ignored watch requests kept %d targets", len(d.targets))
	}
	if _, ok := d.targets["canvas"]; !ok {
		t.Fatalf("active target was dropped")
	}

	d.handle(PointerLeave{Target: "canvas"})
	if d.watcher.Active() {
		t.Fatalf("leave on the watched target did not stop the session")
	}
}

func TestDaemon_DeviceInput(t *testing.T) {
	d, sched, broadcasts := newTestDaemon(t, nil)
	d.handle(WatchBegin{Target: "canvas"})
	drain(broadcasts)

	feed := func(slot int, evs ...inputEvent) {
		for _, ev := range evs {
			d.handle(DeviceInput{Slot: slot, Event: ev})
		}
	}

	// BTN_A press fires, release and repeat are ignored.
	feed(0,
		inputEvent{Type: EV_KEY, Code: 0x130, Value: evValuePress},
		inputEvent{Type: EV_KEY, Code: 0x130, Value: evValueRepeat},
		inputEvent{Type: EV_KEY, Code: 0x130, Value: evValueRelease},
	)
	if names := wiiEventNames(drain(broadcasts)); len(names) != 1 || names[0] != EventButtonA {
		t.Fatalf("unexpected button events: %v", names)
	}

	feed(0,
		inputEvent{Type: EV_ABS, Code: ABS_Y, Value: 0},
		inputEvent{Type: EV_SYN, Code: SYN_REPORT},
	)
	sched.tick()
	feed(0,
		inputEvent{Type: EV_ABS, Code: ABS_Y, Value: 300},
		inputEvent{Type: EV_SYN, Code: SYN_REPORT},
	)
	sched.tick()

	names := wiiEventNames(drain(broadcasts))
	if len(names) != 5 || names[3] != "wiiDown" {
		t.Fatalf("unexpected trend events: %v", names)
	}
}

func TestDaemon_RequestStatus(t *testing.T) {
	d, _, _ := newTestDaemon(t, nil)
	reply := make(chan SessionSnapshot, 1)

	d.handle(RequestStatus{Reply: reply})
	if snap := <-reply; snap.Active {
		t.Fatalf("idle daemon reported active session")
	}

	d.handle(WatchBegin{Target: "canvas"})
	d.handle(RequestStatus{Reply: reply})
	if snap := <-reply; !snap.Active || snap.Target != "canvas" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// A reply channel nobody drains must not block the loop.
	full := make(chan SessionSnapshot)
	d.handle(RequestStatus{Reply: full})
}

func TestDaemon_HoverRegions(t *testing.T) {
	d, _, _ := newTestDaemon(t, []Region{{Name: "canvas", Width: 100, Height: 100}})

	d.handle(SampleReport{Slot: 0, ScreenX: 50, ScreenY: 50})
	d.hover()
	if snap := d.watcher.Snapshot(); !snap.Active || snap.Target != "canvas" {
		t.Fatalf("hover did not start a session: %+v", snap)
	}

	d.handle(SampleReport{Slot: 0, ScreenX: 500, ScreenY: 50})
	d.hover()
	if d.watcher.Active() {
		t.Fatalf("leaving the region did not stop the session")
	}
}

func TestDaemon_BroadcastQueueFullDoesNotBlock(t *testing.T) {
	sched := &manualScheduler{}
	broadcasts := make(chan StreamBroadcast) // never drained
	d := newDaemon(daemonOptions{
		Watch:      DefaultWatchConfig(),
		Scheduler:  sched,
		Broadcasts: broadcasts,
		Logger:     quietLogger(),
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			d.handle(WatchBegin{Target: fmt.Sprintf("t%d", i)})
			d.handle(WatchEnd{})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon blocked on a full broadcast queue")
	}
}

func TestRunDaemon_StopsSessionOnExit(t *testing.T) {
	d, sched, _ := newTestDaemon(t, nil)
	events := make(chan Event) // unbuffered: a completed send means the loop took it
	work := make(chan func(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(ctx, d, events, work)
	}()

	events <- WatchBegin{Target: "canvas"}

	// Work items run on the daemon goroutine; use one as a barrier.
	ran := make(chan bool, 1)
	work <- func() { ran <- d.watcher.Active() }
	select {
	case active := <-ran:
		if !active {
			t.Fatalf("session not started")
		}
	case <-time.After(time.Second):
		t.Fatalf("work item not executed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop")
	}
	if sched.running() != 0 {
		t.Fatalf("session timer still running after daemon exit")
	}
}

func TestRunDaemon_ExitsOnClosedEvents(t *testing.T) {
	d, _, _ := newTestDaemon(t, nil)
	events := make(chan Event)
	close(events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(context.Background(), d, events, nil)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop on closed events channel")
	}
}
