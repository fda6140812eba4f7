package main

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// WatchConfig holds the thresholds and timing of watch sessions.
// It is read-only once the watcher is built. Values are not validated: a
// negative buffer simply makes the neutral trend unreachable.
type WatchConfig struct {
	CloseOnLeave   bool          // stop the session when the pointer leaves its target
	ReplaceCurrent bool          // a watch on another target replaces the running session
	DistanceBuffer float64       // meters
	RotationBuffer float64       // degrees (derived rotation units)
	LateralBuffer  float64       // pixels
	VerticalBuffer float64       // pixels
	Repeat         time.Duration // poll interval while active
	RotationAdjust float64       // scale applied before deriving rotation
}

// DefaultWatchConfig returns the stock thresholds.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		CloseOnLeave:   defaultCloseOnLeave,
		ReplaceCurrent: defaultReplaceCurrent,
		DistanceBuffer: defaultDistanceBuffer,
		RotationBuffer: defaultRotationBuffer,
		LateralBuffer:  defaultLateralBuffer,
		VerticalBuffer: defaultVerticalBuffer,
		Repeat:         defaultWatchRepeatMS * time.Millisecond,
		RotationAdjust: defaultRotationAdjust,
	}
}

// watchSession is one active observation of a target.
type watchSession struct {
	id        string
	target    Target
	stop      func()
	startedAt time.Time

	prev     *Sample
	lateral  *gestureHistory
	vertical *gestureHistory
	polls    int

	// Listeners attached for the lifetime of the session.
	keys  bool
	leave bool
}

// SessionSnapshot is a read-only view of the watcher state.
type SessionSnapshot struct {
	Active      bool      `json:"active"`
	Session     string    `json:"session,omitempty"`
	Target      string    `json:"target,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	Polls       int       `json:"polls"`
	Last        *Sample   `json:"last,omitempty"`
	TiltRadians float64   `json:"tilt_radians,omitempty"`
}

// SessionNotice reports a session lifecycle transition.
type SessionNotice struct {
	Started bool
	Session string
	Target  string
	Reason  string
	Polls   int
	At      time.Time
}

// sessionTarget is implemented by targets that want to know which session runs on them.
type sessionTarget interface {
	setSession(id string)
}

// watcherOptions configure a watcher. Source and Scheduler are required.
type watcherOptions struct {
	Config    WatchConfig
	Source    SampleSource
	Scheduler Scheduler
	Buttons   ButtonMap
	Logger    *slog.Logger
	Clock     func() time.Time
	NewID     func() string
	Notify    func(SessionNotice)
}

// watcher is the watch session state machine: Idle (session == nil) or Active.
//
// At most one session is active at a time. All methods are intended to be
// called only by the daemon goroutine (single-owner); scheduler callbacks are
// delivered on that goroutine too.
type watcher struct {
	cfg       WatchConfig
	source    SampleSource
	scheduler Scheduler
	buttons   ButtonMap
	logger    *slog.Logger
	clock     func() time.Time
	newID     func() string
	notify    func(SessionNotice)

	session *watchSession
}

func newWatcher(opts watcherOptions) *watcher {
	w := &watcher{
		cfg:       opts.Config,
		source:    opts.Source,
		scheduler: opts.Scheduler,
		buttons:   opts.Buttons,
		logger:    opts.Logger,
		clock:     opts.Clock,
		newID:     opts.NewID,
		notify:    opts.Notify,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.clock == nil {
		w.clock = time.Now
	}
	if w.newID == nil {
		w.newID = uuid.NewString
	}
	if w.buttons == nil {
		w.buttons = ButtonMap{}
	}
	return w
}

// Active reports whether a session is running.
func (w *watcher) Active() bool {
	return w.session != nil
}

// Begin starts watching target.
//
// If a session is already active the request is ignored, unless
// ReplaceCurrent is set and target is a different target, in which case the
// running session is torn down first. It reports whether a session started.
func (w *watcher) Begin(target Target) bool {
	if target == nil {
		return false
	}
	if cur := w.session; cur != nil {
		if !w.cfg.ReplaceCurrent || cur.target.ID() == target.ID() {
			w.logger.Debug("watch request ignored (session active)", "target", target.ID(), "active_target", cur.target.ID())
			return false
		}
		w.teardown("replaced")
	}

	s := &watchSession{
		id:        w.newID(),
		target:    target,
		startedAt: w.clock(),
		lateral:   newGestureHistory(lateralAxis),
		vertical:  newGestureHistory(verticalAxis),
		keys:      true,
		leave:     w.cfg.CloseOnLeave,
	}
	w.session = s

	if st, ok := target.(sessionTarget); ok {
		st.setSession(s.id)
	}
	if w.scheduler != nil && w.source != nil {
		s.stop = w.scheduler.Every(w.cfg.Repeat, func() { w.poll(s) })
	}

	w.logger.Info("watch session started", "session", s.id, "target", target.ID(), "repeat", w.cfg.Repeat, "close_on_leave", s.leave)
	w.emit(SessionNotice{Started: true, Session: s.id, Target: target.ID(), At: s.startedAt})
	return true
}

// Stop ends the active session, if any.
func (w *watcher) Stop() bool {
	if w.session == nil {
		return false
	}
	w.teardown("stopped")
	return true
}

// Leave handles a pointer-leave notification for target. The session is torn
// down only if it listens for leave and target is the watched target.
func (w *watcher) Leave(target Target) bool {
	s := w.session
	if s == nil || !s.leave || target == nil || s.target.ID() != target.ID() {
		return false
	}
	w.teardown("pointer_leave")
	return true
}

// Press maps a raw key/button code to a button event on the watched target.
// Presses are only listened for while a session is active.
func (w *watcher) Press(code int) bool {
	s := w.session
	if s == nil || !s.keys {
		return false
	}
	name, ok := w.buttons.lookup(code)
	if !ok {
		return false
	}
	s.target.Fire(name, nil)
	return true
}

// Reset clears the shake history and the previous sample of the active
// session without stopping it. The next poll behaves like a first poll.
func (w *watcher) Reset() {
	if s := w.session; s != nil {
		s.prev = nil
		s.lateral.reset()
		s.vertical.reset()
	}
}

// Snapshot returns a read-only view of the current session.
func (w *watcher) Snapshot() SessionSnapshot {
	s := w.session
	if s == nil {
		return SessionSnapshot{}
	}
	snap := SessionSnapshot{
		Active:    true,
		Session:   s.id,
		Target:    s.target.ID(),
		StartedAt: s.startedAt,
		Polls:     s.polls,
	}
	if s.prev != nil {
		last := *s.prev
		snap.Last = &last
		snap.TiltRadians = tiltRadians(last.RollX, last.RollY)
	}
	return snap
}

// poll runs one poll cycle for s. Ticks of a session that is no longer the
// active one are dropped.
func (w *watcher) poll(s *watchSession) {
	if w.session != s {
		return
	}
	s.polls++

	cur, ok := w.source.Poll()
	if !ok {
		// Nothing eligible this tick; keep the previous sample.
		return
	}
	cur = cur.withRotation(w.cfg.RotationAdjust)

	prev := s.prev
	s.prev = &cur
	if prev == nil {
		return
	}
	w.fireTrends(s, *prev, cur)
}

// fireTrends classifies a sample pair and fires the resulting events.
func (w *watcher) fireTrends(s *watchSession, prev, cur Sample) {
	t := s.target

	d := distanceTrend(prev, cur, w.cfg.DistanceBuffer)
	t.Fire(d.EventName(), cur.Distance)

	r := rotationTrend(prev, cur, w.cfg.RotationBuffer)
	t.Fire(r.EventName(), cur.Rotation)

	l := lateralTrend(prev, cur, w.cfg.LateralBuffer)
	t.Fire(l.EventName(), cur.ScreenX)
	if counts, shake := s.lateral.record(l); shake {
		t.Fire(EventLateralShake, counts)
	}

	v := verticalTrend(prev, cur, w.cfg.VerticalBuffer)
	t.Fire(v.EventName(), cur.ScreenY)
	if counts, shake := s.vertical.record(v); shake {
		t.Fire(EventVerticalShake, counts)
	}

	t.Fire(EventAllData, AllData{Prev: prev, Live: cur})
}

// teardown stops the timer, detaches listeners and clears sample history.
func (w *watcher) teardown(reason string) {
	s := w.session
	if s == nil {
		return
	}
	w.session = nil

	if s.stop != nil {
		s.stop()
	}
	s.keys = false
	s.leave = false
	s.prev = nil
	s.lateral.reset()
	s.vertical.reset()

	if st, ok := s.target.(sessionTarget); ok {
		st.setSession("")
	}

	now := w.clock()
	w.logger.Info("watch session stopped",
		"session", s.id,
		"target", s.target.ID(),
		"reason", reason,
		"polls", humanize.Comma(int64(s.polls)),
		"started", humanize.RelTime(s.startedAt, now, "ago", "from now"))
	w.emit(SessionNotice{Session: s.id, Target: s.target.ID(), Reason: reason, Polls: s.polls, At: now})
}

func (w *watcher) emit(n SessionNotice) {
	if w.notify != nil {
		w.notify(n)
	}
}
