package rangecache

import (
	"fmt"

	"go.uber.org/zap"
)

// WorkItem is an inclusive row range [StartRow, EndRow]
type WorkItem struct {
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
}

// Len returns the number of rows covered, 0 for an empty range
func (w WorkItem) Len() int {
	if w.EndRow < w.StartRow {
		return 0
	}
	return w.EndRow - w.StartRow + 1
}

// Contains reports whether o lies entirely within w
func (w WorkItem) Contains(o WorkItem) bool {
	return w.StartRow <= o.StartRow && o.EndRow <= w.EndRow
}

func (w WorkItem) String() string {
	return fmt.Sprintf("[%d, %d]", w.StartRow, w.EndRow)
}

// window returns the range sent on the wire; the start is never negative
func (w WorkItem) window() WorkItem {
	return WorkItem{StartRow: max(w.StartRow, 0), EndRow: w.EndRow}
}

func itemField(key string, w WorkItem) zap.Field {
	return zap.Stringer(key, w)
}
