package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// deviceEvent is an input event tagged with the slot of the device it came from.
type deviceEvent struct {
	Slot  int
	Event inputEvent
}

// openInputDevices opens the configured devices in slot order.
// On error, devices opened so far are closed.
func openInputDevices(paths []string) ([]*os.File, error) {
	if len(paths) > maxSourceSlots {
		return nil, fmt.Errorf("at most %d input devices are supported, got %d", maxSourceSlots, len(paths))
	}
	files := make([]*os.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			for _, opened := range files {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("open input device %s: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// readInputEvents reads input events from one device and sends them to a channel
// This runs in a dedicated goroutine and blocks on read operations
func readInputEvents(slot int, f *os.File, events chan<- deviceEvent, readErr chan<- error) {
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf) // Reusable reader, reset on each iteration

	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			readErr <- fmt.Errorf("read from %s: %w", f.Name(), err)
			return
		}

		reader.Reset(buf)
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			// Skip malformed events
			continue
		}

		events <- deviceEvent{Slot: slot, Event: ev}
	}
}
