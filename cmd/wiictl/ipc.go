package main

import (
	"encoding/json"
	"fmt"
	"net"
)

// Event types (duplicated from the daemon package for a standalone binary)
type Event interface{}

type WatchBegin struct {
	Target string `json:"target"`
}

type WatchEnd struct{}

type WatchReset struct{}

type PointerEnter struct {
	Target string `json:"target"`
}

type PointerLeave struct {
	Target string `json:"target"`
}

type ButtonPress struct {
	Code int `json:"code"`
}

type SampleReport struct {
	Slot     int     `json:"slot"`
	Browsing *bool   `json:"browsing,omitempty"`
	ScreenX  float64 `json:"screen_x"`
	ScreenY  float64 `json:"screen_y"`
	Distance float64 `json:"distance"`
	RollX    float64 `json:"roll_x"`
	RollY    float64 `json:"roll_y"`
}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func sendEvent(socketPath string, ev Event) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}
	return nil
}

func marshalEvent(ev Event) ([]byte, error) {
	var env EventEnvelope
	var payload any

	switch e := ev.(type) {
	case WatchBegin:
		env.Type = "watch_begin"
		payload = e
	case WatchEnd:
		env.Type = "watch_end"
	case WatchReset:
		env.Type = "watch_reset"
	case PointerEnter:
		env.Type = "pointer_enter"
		payload = e
	case PointerLeave:
		env.Type = "pointer_leave"
		payload = e
	case ButtonPress:
		env.Type = "button_press"
		payload = e
	case SampleReport:
		env.Type = "sample_report"
		payload = e
	default:
		return nil, fmt.Errorf("unknown event type: %T", ev)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}
