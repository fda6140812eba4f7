//go:build linux

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// startInputReaders reads all devices from a single epoll goroutine.
func startInputReaders(files []*os.File, events chan<- deviceEvent, readErr chan<- error) {
	go readInputEventsEpoll(files, events, readErr)
}

// readInputEventsEpoll reads from multiple input devices using epoll
// This is more efficient than spawning a goroutine per device
//
// Instead of:
//   - N goroutines, each blocking on read()
//   - N OS threads potentially
//
// We use:
//   - 1 goroutine with epoll
//   - Kernel wakes us only when events are available
func readInputEventsEpoll(files []*os.File, events chan<- deviceEvent, readErr chan<- error) {
	if len(files) == 0 {
		readErr <- fmt.Errorf("no input devices provided")
		return
	}

	// Create epoll instance
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		readErr <- fmt.Errorf("epoll_create1: %w", err)
		return
	}
	defer unix.Close(epfd)

	// Map file descriptors to device slots for later identification
	fdToSlot := make(map[int]int, len(files))

	for slot, f := range files {
		fd := int(f.Fd())
		fdToSlot[fd] = slot

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			readErr <- fmt.Errorf("epoll_ctl_add %s: %w", f.Name(), err)
			return
		}
	}

	const maxEvents = 32 // Process up to 32 events per epoll_wait call
	epollEvents := make([]unix.EpollEvent, maxEvents)
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		n, err := unix.EpollWait(epfd, epollEvents, -1)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			readErr <- fmt.Errorf("epoll_wait: %w", err)
			return
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			slot := fdToSlot[fd]
			f := files[slot]

			// Any device error is fatal; device management is out of scope.
			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				readErr <- fmt.Errorf("device error/hangup: %s (slot=%d)", f.Name(), slot)
				return
			}

			if _, err := f.Read(buf); err != nil {
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
}
