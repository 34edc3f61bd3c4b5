package rankings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dailyyoga/gridcache/rangecache"
	"github.com/shopspring/decimal"
)

// Entry is a typed view over a cached rankings row
type Entry struct {
	row rangecache.Row
}

// NewEntry wraps row
func NewEntry(row rangecache.Row) Entry {
	return Entry{row: row}
}

// Complete reports whether the row carries every column
func (e Entry) Complete() bool {
	return len(e.row) >= int(NumColumns)
}

// Index returns the sorted index of the row
func (e Entry) Index() (int, bool) {
	return e.row.SortedIndex()
}

// Text returns the column formatted as a string, "" when absent
func (e Entry) Text(col Column) string {
	v, ok := e.value(col)
	if !ok || v == nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Decimal returns a numeric column (bodyweight, lifts, points, age).
// Empty cells and unparsable values report false.
func (e Entry) Decimal(col Column) (decimal.Decimal, bool) {
	v, ok := e.value(col)
	if !ok {
		return decimal.Zero, false
	}
	switch v := v.(type) {
	case decimal.Decimal:
		return v, true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case int32:
		return decimal.NewFromInt32(v), true
	default:
		return decimal.Zero, false
	}
}

// Rank returns the displayed place, which may differ from the sorted index on ties
func (e Entry) Rank() (int, bool) {
	d, ok := e.Decimal(Rank)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

func (e Entry) value(col Column) (any, bool) {
	if col < 0 || int(col) >= len(e.row) {
		return nil, false
	}
	return e.row[col], true
}
