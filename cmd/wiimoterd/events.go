package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Daemon Events
// ============================================================================
// Events represent input from the various sources (IPC, input devices, hover
// regions, WebSocket clients). The central daemon loop consumes them and
// drives the watcher.
// ============================================================================

// Event is a marker interface for everything the daemon loop consumes.
type Event interface {
	eventMarker()
}

// WatchBegin asks the daemon to start watching a target.
type WatchBegin struct {
	Target string `json:"target"`
}

func (WatchBegin) eventMarker() {}

// WatchEnd stops the active watch session.
type WatchEnd struct{}

func (WatchEnd) eventMarker() {}

// WatchReset clears the shake history and previous sample of the active session.
type WatchReset struct{}

func (WatchReset) eventMarker() {}

// PointerEnter notifies that the pointer entered a target. It begins watching it.
type PointerEnter struct {
	Target string `json:"target"`
}

func (PointerEnter) eventMarker() {}

// PointerLeave notifies that the pointer left a target.
type PointerLeave struct {
	Target string `json:"target"`
}

func (PointerLeave) eventMarker() {}

// ButtonPress carries a raw key/button code.
type ButtonPress struct {
	Code int `json:"code"`
}

func (ButtonPress) eventMarker() {}

// SampleReport pushes a reading into a device slot of the sample source.
// Browsing defaults to true when omitted.
type SampleReport struct {
	Slot     int     `json:"slot"`
	Browsing *bool   `json:"browsing,omitempty"`
	ScreenX  float64 `json:"screen_x"`
	ScreenY  float64 `json:"screen_y"`
	Distance float64 `json:"distance"`
	RollX    float64 `json:"roll_x"`
	RollY    float64 `json:"roll_y"`
}

func (SampleReport) eventMarker() {}

// isBrowsing reports the browsing state of the report.
func (r SampleReport) isBrowsing() bool {
	return r.Browsing == nil || *r.Browsing
}

// sample converts the report into a raw sample.
func (r SampleReport) sample() Sample {
	return Sample{
		ScreenX:  r.ScreenX,
		ScreenY:  r.ScreenY,
		Distance: r.Distance,
		RollX:    r.RollX,
		RollY:    r.RollY,
	}
}

// DeviceInput is a raw input event read from an evdev device. Internal only.
type DeviceInput struct {
	Slot  int
	Event inputEvent
}

func (DeviceInput) eventMarker() {}

// RequestStatus asks the daemon loop for a snapshot of the watcher. Internal only.
type RequestStatus struct {
	Reply chan<- SessionSnapshot
}

func (RequestStatus) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope wraps events for JSON serialization/deserialization.
// Since Go doesn't have union types, we use a type discriminator.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "watch_begin":
		var e WatchBegin
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal WatchBegin: %w", err)
		}
		if e.Target == "" {
			return nil, fmt.Errorf("watch_begin: target is required")
		}
		return e, nil

	case "watch_end":
		return WatchEnd{}, nil

	case "watch_reset":
		return WatchReset{}, nil

	case "pointer_enter":
		var e PointerEnter
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal PointerEnter: %w", err)
		}
		if e.Target == "" {
			return nil, fmt.Errorf("pointer_enter: target is required")
		}
		return e, nil

	case "pointer_leave":
		var e PointerLeave
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal PointerLeave: %w", err)
		}
		if e.Target == "" {
			return nil, fmt.Errorf("pointer_leave: target is required")
		}
		return e, nil

	case "button_press":
		var e ButtonPress
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal ButtonPress: %w", err)
		}
		return e, nil

	case "sample_report":
		var e SampleReport
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SampleReport: %w", err)
		}
		if e.Slot < 0 || e.Slot >= maxSourceSlots {
			return nil, fmt.Errorf("sample_report: slot must be between 0 and %d", maxSourceSlots-1)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// unmarshalData decodes an envelope payload. A missing payload is an error.
func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(data, v)
}
