package rangecache

import (
	"sync"

	"github.com/dailyyoga/gridcache/logger"
	"go.uber.org/zap"
)

// Store is the sparse row store shared with the grid.
//
// A row present at index i always carries sorted index i. The total length
// only changes when a server payload is merged, and rows are never evicted.
// Reads are safe from any goroutine; writes happen only inside the cache.
type Store struct {
	mu     sync.RWMutex
	rows   map[int]Row
	length int
}

func newStore() *Store {
	return &Store{rows: make(map[int]Row)}
}

// Length returns the authoritative total row count
func (s *Store) Length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.length
}

// Row returns the row at index i, if it has been fetched
func (s *Store) Row(i int) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[i]
	return r, ok
}

// Has reports whether the row at index i has been fetched
func (s *Store) Has(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rows[i]
	return ok
}

// Cached returns how many rows are held
func (s *Store) Cached() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// merge overwrites the length and stores every row at its embedded index.
// Rows without a usable index are skipped.
func (s *Store) merge(p *Payload, log logger.Logger) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.length = p.TotalLength
	written := 0
	for pos, row := range p.Rows {
		idx, ok := row.SortedIndex()
		if !ok {
			log.Warn("skipping row without sorted index",
				zap.Int("position", pos),
				zap.Int("fields", len(row)),
			)
			continue
		}
		s.rows[idx] = row
		written++
	}
	return written
}

// resolve clamps item to the known length and shrinks it from both ends past
// rows that are already present. missing is false when nothing needs fetching.
// Holes strictly inside an otherwise present range are not detected.
func (s *Store) resolve(item WorkItem) (shrunk WorkItem, missing bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := max(item.StartRow, 0)
	end := min(item.EndRow, s.length-1)

	for start < end && s.present(start) {
		start++
	}
	for end > start && s.present(end) {
		end--
	}

	shrunk = WorkItem{StartRow: start, EndRow: end}
	if start > end || (start == end && s.present(start)) {
		return shrunk, false
	}
	return shrunk, true
}

// maximize widens item to at least batch rows of read-ahead, first forward
// then backward, through rows that are still unfetched and inside
// [0, length-1].
func (s *Store) maximize(item WorkItem, batch int) WorkItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end := item.StartRow, item.EndRow
	for end-start+1 < batch && end+1 < s.length && !s.present(end+1) {
		end++
	}
	// scrolling up
	for end-start+1 < batch && start > 0 && !s.present(start-1) {
		start--
	}
	return WorkItem{StartRow: start, EndRow: end}
}

func (s *Store) present(i int) bool {
	_, ok := s.rows[i]
	return ok
}
