package rangecache

import "fmt"

var (
	// ErrCacheClosed is reported when demand arrives after Close
	ErrCacheClosed = fmt.Errorf("rangecache: cache is closed")
	// ErrNilFetcher is returned by New when no Fetcher is given
	ErrNilFetcher = fmt.Errorf("rangecache: fetcher is required")
	// ErrEmptyPayload is reported when a fetcher returns neither data nor an error
	ErrEmptyPayload = fmt.Errorf("rangecache: fetcher returned no payload")
)

// ErrInvalidConfig returns an error for an invalid configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("rangecache: invalid config: %s", msg)
}

// ErrFetch wraps a failed fetch of window
func ErrFetch(window WorkItem, err error) error {
	return fmt.Errorf("rangecache: fetch %s failed: %w", window, err)
}

// ErrFetcherPanic wraps a value recovered from a panicking Fetcher
func ErrFetcherPanic(rec any) error {
	return fmt.Errorf("rangecache: fetcher panicked: %v", rec)
}
