// Package rangecache implements an incremental, windowed row cache for
// virtualized data grids.
//
// Rows are addressed by their dense sorted index inside a single ordered
// collection whose total length is reported by the server. The grid asks for
// inclusive row ranges as it scrolls; rows that are already known are served
// from a sparse Store, and missing ranges are fetched lazily:
//   - EnsureData shrinks a request to the sub-range that is actually missing
//   - ForceData debounces demand, last write wins
//   - at most one fetch is in flight, at most one demand is queued behind it
//   - each fetch is widened to BatchSize rows of read-ahead
//
// Progress is reported through three Event channels (loading, loaded, first
// load), delivered synchronously in subscription order.
package rangecache

import "context"

// Query holds the pass-through parameters forwarded verbatim to the endpoint
type Query struct {
	// Selection is the sort/filter selection suffix, e.g. "/raw/men"
	Selection string
	// Language is the display language code
	Language string
	// Units is the unit system code
	Units string
}

// Fetcher loads an inclusive row window from the remote endpoint.
// Implementations must honour ctx cancellation; TerminateActiveRequests
// aborts an in-flight fetch by cancelling it.
type Fetcher interface {
	Fetch(ctx context.Context, query Query, window WorkItem) (*Payload, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface
type FetcherFunc func(ctx context.Context, query Query, window WorkItem) (*Payload, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, query Query, window WorkItem) (*Payload, error) {
	return f(ctx, query, window)
}

// RangeCache is the cache contract exposed to the grid layer
type RangeCache interface {
	// Length returns the total number of rows reported by the server (0 before any data)
	Length() int

	// Store returns the underlying sparse store for direct, copy-free reads.
	// Only the cache writes to it.
	Store() *Store

	// EnsureData makes sure the inclusive range is available, fetching the
	// missing part if any. A fully satisfied range is reported as loaded
	// before EnsureData returns.
	EnsureData(item WorkItem)

	// ForceData schedules a fetch for item without checking what is cached
	// and without bounds checking. Calls within the debounce window replace
	// each other.
	ForceData(item WorkItem)

	// CancelPendingRequests disarms the debounce timer and drops the queued
	// demand. An in-flight fetch is left alone.
	CancelPendingRequests()

	// TerminateActiveRequests aborts the in-flight fetch, if any, and cancels
	// pending work. Use it when the selection changes.
	TerminateActiveRequests()

	// OnDataLoading fires when a fetch is dispatched
	OnDataLoading() *Event
	// OnDataLoaded fires when a range became available or a fetch failed
	OnDataLoaded() *Event
	// OnFirstLoad fires once, for the first successful fetch of an unseeded cache
	OnFirstLoad() *Event

	// Stream delivers every notification on a channel until ctx is done.
	// The channel is unbounded so a slow reader never blocks the cache. After
	// ctx is done the backlog stays readable for a few seconds, then the
	// channel is closed whether or not it was drained.
	Stream(ctx context.Context) <-chan Notification

	// State reports the current scheduler phase
	State() Phase

	// Close terminates active requests and waits until their fetches have
	// settled. Listeners still being notified are not waited for, so Close
	// may be called from a listener. Subsequent EnsureData and ForceData
	// calls are ignored.
	Close()
}
