package rangecache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const waitTimeout = 2 * time.Second

// manualClock replaces time.AfterFunc; timers only fire when the test says so
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (m *manualClock) AfterFunc(_ time.Duration, fn func()) timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{clock: m, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Armed counts timers that are neither stopped nor fired
func (m *manualClock) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Fire runs every armed timer on the calling goroutine
func (m *manualClock) Fire() int {
	m.mu.Lock()
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// fakeFetcher serves synthetic rows for a collection of total rows
type fakeFetcher struct {
	total int

	mu        sync.Mutex
	calls     []WorkItem
	queries   []Query
	gate      chan struct{}
	err       error
	ignoreCtx bool

	started chan WorkItem
}

func newFakeFetcher(total int) *fakeFetcher {
	return &fakeFetcher{total: total, started: make(chan WorkItem, 16)}
}

// hold makes subsequent fetches block until release is called
func (f *fakeFetcher) hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

func (f *fakeFetcher) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

func (f *fakeFetcher) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFetcher) Calls() []WorkItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WorkItem(nil), f.calls...)
}

func (f *fakeFetcher) Fetch(ctx context.Context, query Query, window WorkItem) (*Payload, error) {
	f.mu.Lock()
	f.calls = append(f.calls, window)
	f.queries = append(f.queries, query)
	gate, err, ignoreCtx := f.gate, f.err, f.ignoreCtx
	f.mu.Unlock()

	f.started <- window

	if gate != nil {
		if ignoreCtx {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return makePayload(f.total, window), nil
}

func makePayload(total int, window WorkItem) *Payload {
	p := &Payload{TotalLength: total}
	for i := window.StartRow; i <= window.EndRow && i < total; i++ {
		p.Rows = append(p.Rows, Row{i, fmt.Sprintf("lifter-%d", i)})
	}
	return p
}

// recorder captures notifications from all three events
type recorder struct {
	loading   chan WorkItem
	loaded    chan WorkItem
	firstLoad chan WorkItem
}

func record(c RangeCache) *recorder {
	r := &recorder{
		loading:   make(chan WorkItem, 32),
		loaded:    make(chan WorkItem, 32),
		firstLoad: make(chan WorkItem, 32),
	}
	c.OnDataLoading().Subscribe(func(item WorkItem) { r.loading <- item })
	c.OnDataLoaded().Subscribe(func(item WorkItem) { r.loaded <- item })
	c.OnFirstLoad().Subscribe(func(item WorkItem) { r.firstLoad <- item })
	return r
}

func recv(t *testing.T, ch <-chan WorkItem) WorkItem {
	t.Helper()
	select {
	case item := <-ch:
		return item
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for notification")
		return WorkItem{}
	}
}

func requireNone(t *testing.T, ch <-chan WorkItem) {
	t.Helper()
	select {
	case item := <-ch:
		t.Fatalf("unexpected item %s", item)
	case <-time.After(20 * time.Millisecond):
	}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// newTestCache builds a cache driven by a manual clock
func newTestCache(t *testing.T, f Fetcher, seed *Payload) (*rangeCache, *manualClock, *observer.ObservedLogs) {
	t.Helper()
	log, logs := observedLogger()
	c, err := New(log, &Config{Name: "test", Selection: "/raw/men", Language: "de", Units: "lbs"}, f, seed)
	require.NoError(t, err)
	rc := c.(*rangeCache)
	clock := &manualClock{}
	rc.afterFunc = clock.AfterFunc
	t.Cleanup(rc.Close)
	return rc, clock, logs
}
