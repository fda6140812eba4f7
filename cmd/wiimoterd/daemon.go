package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The daemon goroutine is the single owner of the watcher, the sample source
// slots and the hover regions. Every other goroutine (input readers, IPC
// connections, scheduler tickers, WebSocket handlers) talks to it through
// channels:
//
//   - events: Events from IPC, input devices and the WebSocket server
//   - work:   scheduler callbacks (poll ticks of the active session)
//
// Because poll ticks run on this goroutine, a session stopped while handling
// an event can never be polled again afterwards.
//
// ============================================================================

// StreamBroadcast is a message for WebSocket stream clients.
type StreamBroadcast interface {
	broadcastMarker()
}

func (WiiEvent) broadcastMarker()      {}
func (SessionNotice) broadcastMarker() {}

// daemonOptions wire a daemon.
type daemonOptions struct {
	Watch         WatchConfig
	Buttons       ButtonMap
	Regions       []Region
	DistanceScale float64
	Scheduler     Scheduler
	Broadcasts    chan<- StreamBroadcast
	Logger        *slog.Logger
}

// daemon holds the state owned by the daemon goroutine.
type daemon struct {
	watcher    *watcher
	source     *slotSource
	assemblers map[int]*evdevAssembler
	targets    map[string]*boundTarget
	regions    *regionTracker

	distanceScale float64
	hoverEvery    time.Duration
	broadcasts    chan<- StreamBroadcast
	logger        *slog.Logger
}

func newDaemon(opts daemonOptions) *daemon {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &daemon{
		source:        newSlotSource(),
		assemblers:    make(map[int]*evdevAssembler),
		targets:       make(map[string]*boundTarget),
		distanceScale: opts.DistanceScale,
		hoverEvery:    opts.Watch.Repeat,
		broadcasts:    opts.Broadcasts,
		logger:        logger,
	}
	if len(opts.Regions) > 0 {
		d.regions = newRegionTracker(opts.Regions)
	}

	d.watcher = newWatcher(watcherOptions{
		Config:    opts.Watch,
		Source:    d.source,
		Scheduler: opts.Scheduler,
		Buttons:   opts.Buttons,
		Logger:    logger,
		Notify: func(n SessionNotice) {
			d.broadcast(n)
		},
	})
	return d
}

// target returns the bound target for a name, creating it on first use.
// Creating a target drops every other target that no session runs on, so
// the map holds at most the active target and the new one.
func (d *daemon) target(name string) *boundTarget {
	if t, ok := d.targets[name]; ok {
		return t
	}
	active := d.watcher.Snapshot().Target
	for id := range d.targets {
		if id != active {
			delete(d.targets, id)
		}
	}
	t := newBoundTarget(name, func(ev WiiEvent) { d.broadcast(ev) }, d.logger)
	d.targets[name] = t
	return t
}

// leave forwards a leave notification. Unknown names cannot be the watched
// target and are ignored without creating a target.
func (d *daemon) leave(name string) {
	if t, ok := d.targets[name]; ok {
		d.watcher.Leave(t)
	}
}

// broadcast hands a message to the stream broadcaster. It never blocks the
// daemon loop; if the queue is full the message is dropped.
func (d *daemon) broadcast(b StreamBroadcast) {
	if d.broadcasts == nil {
		return
	}
	select {
	case d.broadcasts <- b:
	default:
		d.logger.Warn("stream broadcast queue full, dropping message")
	}
}

// handle applies one event.
func (d *daemon) handle(ev Event) {
	switch e := ev.(type) {
	case WatchBegin:
		d.watcher.Begin(d.target(e.Target))

	case PointerEnter:
		d.watcher.Begin(d.target(e.Target))

	case PointerLeave:
		d.leave(e.Target)

	case WatchEnd:
		d.watcher.Stop()

	case WatchReset:
		d.watcher.Reset()

	case ButtonPress:
		d.watcher.Press(e.Code)

	case SampleReport:
		d.source.update(e.Slot, e.sample(), e.isBrowsing())

	case DeviceInput:
		d.handleDeviceInput(e)

	case RequestStatus:
		if e.Reply != nil {
			select {
			case e.Reply <- d.watcher.Snapshot():
			default:
			}
		}

	default:
		d.logger.Debug("ignoring unknown event", "event", ev)
	}
}

// handleDeviceInput feeds raw evdev input into the slot source and maps key
// presses to button events.
func (d *daemon) handleDeviceInput(in DeviceInput) {
	ev := in.Event
	if ev.Type == EV_KEY && ev.Value == evValuePress {
		d.watcher.Press(int(ev.Code))
	}

	a, ok := d.assemblers[in.Slot]
	if !ok {
		a = newEvdevAssembler(d.distanceScale)
		d.assemblers[in.Slot] = a
	}
	if sample, browsing, commit := a.handle(ev); commit {
		d.source.update(in.Slot, sample, browsing)
	}
}

// hover derives enter/leave notifications from the current pointer position.
func (d *daemon) hover() {
	if d.regions == nil {
		return
	}
	s, ok := d.source.Poll()
	left, entered := d.regions.update(s, ok)
	if left != "" {
		d.leave(left)
	}
	if entered != "" {
		d.watcher.Begin(d.target(entered))
	}
}

// runDaemon is the main daemon loop.
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
//
// The active session is stopped on exit.
func runDaemon(ctx context.Context, d *daemon, events <-chan Event, work <-chan func()) {
	defer d.watcher.Stop()

	var hoverC <-chan time.Time
	if d.regions != nil && d.hoverEvery > 0 {
		ticker := time.NewTicker(d.hoverEvery)
		defer ticker.Stop()
		hoverC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				d.logger.Info("daemon stopping (events channel closed)")
				return
			}
			d.handle(ev)

		case fn := <-work:
			fn()

		case <-hoverC:
			d.hover()
		}
	}
}
