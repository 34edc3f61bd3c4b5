package rankings

import (
	"testing"

	"github.com/dailyyoga/gridcache/db"
	"github.com/dailyyoga/gridcache/rangecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// dryRunDB opens a MySQL dialect handle that never touches the network
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "reader@tcp(127.0.0.1:3306)/opl",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return gdb
}

func newTestSQLFetcher(t *testing.T, log *zap.Logger, cfg *SQLConfig) *SQLFetcher {
	t.Helper()
	f, err := NewSQLFetcher(log, db.Wrap(log, dryRunDB(t)), cfg)
	require.NoError(t, err)
	return f
}

func TestSQLFetcher_Queries(t *testing.T) {
	f := newTestSQLFetcher(t, zap.NewNop(), nil)
	q := rangecache.Query{Selection: "/raw/men", Language: "en", Units: "kg"}

	windowSQL := f.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return f.windowQuery(tx, q, rangecache.WorkItem{StartRow: -2, EndRow: 139}).Find(&[]rankingRecord{})
	})
	for _, part := range []string{
		"FROM `ranking_rows`",
		"selection = '/raw/men'",
		"lang = 'en'",
		"units = 'kg'",
		"sorted_index BETWEEN 0 AND 139",
		"ORDER BY sorted_index",
	} {
		assert.Contains(t, windowSQL, part)
	}

	countSQL := f.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var n int64
		return f.scope(tx, q).Count(&n)
	})
	assert.Contains(t, countSQL, "count(*)")
	assert.NotContains(t, countSQL, "sorted_index")
}

func TestSQLFetcher_CustomTable(t *testing.T) {
	f := newTestSQLFetcher(t, zap.NewNop(), &SQLConfig{Table: "rankings_v2"})
	sql := f.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return f.windowQuery(tx, rangecache.Query{}, rangecache.WorkItem{EndRow: 9}).Find(&[]rankingRecord{})
	})
	assert.Contains(t, sql, "FROM `rankings_v2`")
}

func TestNewSQLFetcher_RejectsBadTable(t *testing.T) {
	_, err := NewSQLFetcher(zap.NewNop(), db.Wrap(zap.NewNop(), nil), &SQLConfig{Table: "x; DROP TABLE y"})
	assert.ErrorContains(t, err, "rankings: invalid config")

	_, err = NewSQLFetcher(zap.NewNop(), db.Wrap(zap.NewNop(), nil), nil)
	assert.ErrorIs(t, err, db.ErrNotConnected)
}

func TestSQLFetcher_DecodeRecords(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newTestSQLFetcher(t, zap.New(core), nil)

	rows, err := f.decodeRecords([]rankingRecord{
		{SortedIndex: 4, Payload: `[4, 5, "Jane Doe", "", "", "", "", "", "", "", "", "", "", "", "F", "Raw", "31", "", "71.35"]`},
		{SortedIndex: 6, Payload: `[7, 8, "Mismatch"]`},
		{SortedIndex: 5, Payload: `[5, 6, "John Roe"]`},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	bw, ok := NewEntry(rows[0]).Decimal(Bodyweight)
	require.True(t, ok)
	assert.Equal(t, "71.35", bw.String())
	assert.Equal(t, "John Roe", NewEntry(rows[1]).Text(Name))
	assert.Equal(t, 1, logs.FilterMessage("dropping inconsistent ranking row").Len())

	_, err = f.decodeRecords([]rankingRecord{{SortedIndex: 1, Payload: `{not json`}})
	assert.ErrorContains(t, err, "rankings: decode failed")
}
