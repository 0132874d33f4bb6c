package fanout

import (
	"sync"
	"time"
)

// StatusSnapshot is a point-in-time read of a Status aggregator.
type StatusSnapshot struct {
	Operations int
	Requests   int
	Errors     int
	Duration   time.Duration
}

// Status is the process-global {time, requests, errors} aggregator,
// guarded by a single mutex. One copy is shared across every Group's
// Worker.
type Status struct {
	mu         sync.Mutex
	operations int
	requests   int
	errors     int
	duration   time.Duration
}

func (s *Status) Record(requests, errors int, dur time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations++
	s.requests += requests
	s.errors += errors
	s.duration += dur
}

func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusSnapshot{
		Operations: s.operations,
		Requests:   s.requests,
		Errors:     s.errors,
		Duration:   s.duration,
	}
}

// GroupStatus is the per-group counterpart. It is intentionally
// unguarded: it is written only by the one
// Worker goroutine that owns this Group, and any informational read from
// another goroutine (e.g. a status command) is a best-effort, eventually
// consistent peek, never used for a correctness decision.
type GroupStatus struct {
	Operations int
	Requests   int
	Errors     int
	Duration   time.Duration
}

func (s *GroupStatus) record(requests, errors int, dur time.Duration) {
	s.Operations++
	s.Requests += requests
	s.Errors += errors
	s.Duration += dur
}
