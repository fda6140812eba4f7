//go:build !linux

package main

import (
	"fmt"
	"os"
)

// startInputReaders spawns one reader goroutine per device.
func startInputReaders(files []*os.File, events chan<- deviceEvent, readErr chan<- error) {
	if len(files) == 0 {
		readErr <- fmt.Errorf("no input devices provided")
		return
	}
	for slot, f := range files {
		go readInputEvents(slot, f, events, readErr)
	}
}
