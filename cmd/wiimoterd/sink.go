package main

import (
	"log/slog"
	"time"
)

// EventSink receives named events. Fire must not block for long and must not panic.
type EventSink interface {
	Fire(name string, payload any)
}

// Target is the thing being watched. Events of a session are fired on its target.
// Two targets are the same target when their IDs are equal.
type Target interface {
	EventSink
	ID() string
}

// AllData is the payload of the wiiAllData event.
type AllData struct {
	Prev Sample `json:"prev"`
	Live Sample `json:"live"`
}

// WiiEvent is an event fired on a bound target, as published to stream clients.
type WiiEvent struct {
	Target  string    `json:"target"`
	Session string    `json:"session,omitempty"`
	Name    string    `json:"name"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"-"`
}

// boundTarget is a named target whose events are published as WiiEvents.
//
// session is set by the watcher while a session runs on this target so that
// published events can be correlated with session_started/session_stopped.
type boundTarget struct {
	id      string
	session string
	publish func(WiiEvent)
	logger  *slog.Logger
	clock   func() time.Time
}

func newBoundTarget(id string, publish func(WiiEvent), logger *slog.Logger) *boundTarget {
	return &boundTarget{
		id:      id,
		publish: publish,
		logger:  logger,
		clock:   time.Now,
	}
}

func (t *boundTarget) ID() string { return t.id }

func (t *boundTarget) Fire(name string, payload any) {
	if t.logger != nil {
		t.logger.Debug("wii event", "target", t.id, "name", name, "payload", payload)
	}
	if t.publish == nil {
		return
	}
	t.publish(WiiEvent{
		Target:  t.id,
		Session: t.session,
		Name:    name,
		Payload: payload,
		At:      t.clock().UTC(),
	})
}

// setSession records the id of the session currently running on the target.
func (t *boundTarget) setSession(id string) { t.session = id }
