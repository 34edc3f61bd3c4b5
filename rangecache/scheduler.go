package rangecache

import (
	"context"
	"time"
)

// Phase is the request scheduler state
type Phase int

const (
	// PhaseIdle: no timer, no fetch, no queued demand
	PhaseIdle Phase = iota
	// PhaseDebouncing: demand is pending behind an armed timer, nothing in flight
	PhaseDebouncing
	// PhaseInFlight: one fetch is outstanding, nothing queued
	PhaseInFlight
	// PhaseQueued: one fetch is outstanding and newer demand waits for it.
	// The timer may still be armed or may already have elapsed.
	PhaseQueued
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDebouncing:
		return "debouncing"
	case PhaseInFlight:
		return "in_flight"
	case PhaseQueued:
		return "queued"
	default:
		return "unknown"
	}
}

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// request is the in-flight fetch
type request struct {
	seq    uint64
	demand WorkItem // as popped from the queue
	item   WorkItem // maximized, as dispatched
	cancel context.CancelFunc
	done   func() // marks the fetch settled for Close, idempotent
}

// scheduler is the debounce/coalesce state machine. It is owned by a
// rangeCache and only touched under the cache lock.
//
// pending is meaningful in PhaseDebouncing and PhaseQueued, active in
// PhaseInFlight and PhaseQueued. An armed timer implies pending demand.
type scheduler struct {
	phase    Phase
	pending  WorkItem
	active   *request
	timer    timer
	timerSeq uint64
}

func (s *scheduler) hasPending() bool {
	return s.phase == PhaseDebouncing || s.phase == PhaseQueued
}

func (s *scheduler) armed() bool {
	return s.timer != nil
}

// queue replaces any pending demand with item. It reports whether the
// debounce timer still has to be armed.
func (s *scheduler) queue(item WorkItem) bool {
	s.pending = item
	switch s.phase {
	case PhaseIdle:
		s.phase = PhaseDebouncing
	case PhaseInFlight:
		s.phase = PhaseQueued
	}
	return s.timer == nil
}

// arm starts the debounce timer; start receives the token the callback must
// present to fire.
func (s *scheduler) arm(start func(seq uint64) timer) {
	s.timerSeq++
	s.timer = start(s.timerSeq)
}

// fire handles an elapsed timer. It returns the demand to dispatch, or false
// when the timer was cancelled, nothing is pending, or a fetch is in flight
// (its completion picks the demand up).
func (s *scheduler) fire(seq uint64) (WorkItem, bool) {
	if s.timer == nil || seq != s.timerSeq {
		return WorkItem{}, false
	}
	s.timer = nil
	if s.phase != PhaseDebouncing {
		return WorkItem{}, false
	}
	return s.take()
}

// take pops the pending demand
func (s *scheduler) take() (WorkItem, bool) {
	switch s.phase {
	case PhaseDebouncing:
		s.phase = PhaseIdle
	case PhaseQueued:
		s.phase = PhaseInFlight
	default:
		return WorkItem{}, false
	}
	item := s.pending
	s.pending = WorkItem{}
	return item, true
}

// takeElapsed pops pending demand only if its timer has already elapsed
func (s *scheduler) takeElapsed() (WorkItem, bool) {
	if s.timer != nil {
		return WorkItem{}, false
	}
	return s.take()
}

// begin records req as the in-flight fetch. Nothing may be in flight and
// nothing may be pending.
func (s *scheduler) begin(req *request) {
	s.active = req
	s.phase = PhaseInFlight
}

// finish clears the in-flight fetch if seq still identifies it. false means
// the completion belongs to a terminated request and must be ignored.
func (s *scheduler) finish(seq uint64) (*request, bool) {
	if s.active == nil || s.active.seq != seq {
		return nil, false
	}
	req := s.active
	s.active = nil
	if s.phase == PhaseQueued {
		s.phase = PhaseDebouncing
	} else {
		s.phase = PhaseIdle
	}
	return req, true
}

// cancelPending disarms the timer and drops pending demand
func (s *scheduler) cancelPending() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// invalidate a callback that already started running
	s.timerSeq++
	s.pending = WorkItem{}
	switch s.phase {
	case PhaseDebouncing:
		s.phase = PhaseIdle
	case PhaseQueued:
		s.phase = PhaseInFlight
	}
}

// terminate aborts the in-flight fetch and cancels pending demand. It returns
// the aborted request, if any.
func (s *scheduler) terminate() *request {
	req := s.active
	if req != nil {
		req.cancel()
		s.active = nil
	}
	s.cancelPending()
	s.phase = PhaseIdle
	return req
}
