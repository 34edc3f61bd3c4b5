package rangecache

import (
	"encoding/json"
	"math"
)

// SortedIndexColumn is the position of the sorted index inside every Row
const SortedIndexColumn = 0

// Row is one record as an ordered tuple of scalar fields.
// Decoded JSON numbers arrive as json.Number or float64.
type Row []any

// SortedIndex returns the row's absolute position in the full result set.
// ok is false when the field is missing, negative or not an integer.
func (r Row) SortedIndex() (int, bool) {
	if len(r) <= SortedIndexColumn {
		return 0, false
	}
	var idx int64
	switch v := r[SortedIndexColumn].(type) {
	case int:
		idx = int64(v)
	case int32:
		idx = int64(v)
	case int64:
		idx = v
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		idx = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		idx = n
	default:
		return 0, false
	}
	if idx < 0 || idx > math.MaxInt32 {
		return 0, false
	}
	return int(idx), true
}

// Payload is the endpoint response shape, also accepted as the seed
type Payload struct {
	TotalLength int   `json:"total_length"`
	Rows        []Row `json:"rows"`
}
