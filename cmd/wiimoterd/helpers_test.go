package main

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

// firedEvent is one event recorded by recordingTarget.
type firedEvent struct {
	Name    string
	Payload any
}

// recordingTarget is a Target that records everything fired on it.
type recordingTarget struct {
	id     string
	events []firedEvent
}

func newRecordingTarget(id string) *recordingTarget {
	return &recordingTarget{id: id}
}

func (r *recordingTarget) ID() string { return r.id }

func (r *recordingTarget) Fire(name string, payload any) {
	r.events = append(r.events, firedEvent{Name: name, Payload: payload})
}

func (r *recordingTarget) names() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

func (r *recordingTarget) count(name string) int {
	n := 0
	for _, e := range r.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// manualTask is a task registered on a manualScheduler.
type manualTask struct {
	interval time.Duration
	fn       func()
	stopped  bool
}

// manualScheduler is a Scheduler whose ticks are driven by the test.
type manualScheduler struct {
	tasks []*manualTask
}

func (m *manualScheduler) Every(interval time.Duration, fn func()) func() {
	task := &manualTask{interval: interval, fn: fn}
	m.tasks = append(m.tasks, task)
	return func() { task.stopped = true }
}

// tick runs every task that has not been stopped.
func (m *manualScheduler) tick() {
	for _, task := range m.tasks {
		if !task.stopped {
			task.fn()
		}
	}
}

// running returns the number of tasks that have not been stopped.
func (m *manualScheduler) running() int {
	n := 0
	for _, task := range m.tasks {
		if !task.stopped {
			n++
		}
	}
	return n
}

// queueSource returns queued samples one per poll, then reports no sample.
type queueSource struct {
	samples []Sample
}

func (q *queueSource) push(s ...Sample) {
	q.samples = append(q.samples, s...)
}

func (q *queueSource) Poll() (Sample, bool) {
	if len(q.samples) == 0 {
		return Sample{}, false
	}
	s := q.samples[0]
	q.samples = q.samples[1:]
	return s, true
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitUntil polls cond until it is true or timeout expires.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
