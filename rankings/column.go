// Package rankings connects a rangecache.RangeCache to the rankings data
// endpoint and describes the layout of the rows it serves.
//
// Two fetchers are provided: Client talks to the JSON API over HTTP, and
// SQLFetcher reads the same rows from a materialized MySQL table.
package rankings

// Column is the position of a field inside a rankings row.
// The order must match the server's row serialization.
type Column int

const (
	SortedIndex Column = iota
	Rank
	Name
	Username
	Instagram
	Color
	Flair
	LifterCountry
	LifterState
	Federation
	Date
	MeetCountry
	MeetState
	Path
	Sex
	Equipment
	Age
	Division
	Bodyweight
	WeightClass
	Squat
	Bench
	Deadlift
	Total
	Points

	// NumColumns is the number of fields in a complete row
	NumColumns
)

var columnNames = [NumColumns]string{
	"sorted_index", "rank", "name", "username", "instagram", "color", "flair",
	"lifter_country", "lifter_state", "federation", "date", "meet_country",
	"meet_state", "path", "sex", "equipment", "age", "division", "bodyweight",
	"weight_class", "squat", "bench", "deadlift", "total", "points",
}

func (c Column) String() string {
	if c < 0 || c >= NumColumns {
		return "unknown"
	}
	return columnNames[c]
}
