package main

import (
	"sync"
	"time"
)

// Scheduler runs a recurring task.
//
// The returned stop function is synchronous and idempotent: once it returns,
// fn is never invoked again, even if a tick was already queued.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// loopScheduler runs tickers on their own goroutines but executes callbacks on
// the daemon goroutine by posting them to its work queue.
//
// Every and the returned stop function must be called on the daemon goroutine.
type loopScheduler struct {
	work chan<- func()

	// newTicker is swapped in tests to drive ticks by hand.
	newTicker func(d time.Duration) (<-chan time.Time, func())
}

func newLoopScheduler(work chan<- func()) *loopScheduler {
	return &loopScheduler{
		work: work,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

func (s *loopScheduler) Every(interval time.Duration, fn func()) func() {
	ticks, stopTicker := s.newTicker(interval)
	done := make(chan struct{})

	// stopped is only read and written on the daemon goroutine: by stop and by
	// the posted callbacks. It discards ticks that were queued before stop.
	stopped := false
	run := func() {
		if stopped {
			return
		}
		fn()
	}

	go func() {
		defer stopTicker()
		for {
			select {
			case <-done:
				return
			case <-ticks:
				select {
				case s.work <- run:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped = true
			close(done)
		})
	}
}
