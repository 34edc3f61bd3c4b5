package rankings

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dailyyoga/gridcache/db"
	"github.com/dailyyoga/gridcache/logger"
	"github.com/dailyyoga/gridcache/rangecache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// rankingRecord is one materialized row. Payload holds the row tuple as
// serialized by the API, so both fetchers produce identical rows.
type rankingRecord struct {
	Selection   string `gorm:"column:selection"`
	Language    string `gorm:"column:lang"`
	Units       string `gorm:"column:units"`
	SortedIndex int    `gorm:"column:sorted_index"`
	Payload     string `gorm:"column:payload"`
}

// SQLFetcher serves row windows straight from a rankings table, for
// deployments that sit next to a database replica instead of the API.
type SQLFetcher struct {
	logger logger.Logger
	db     *gorm.DB
	table  string
}

var _ rangecache.Fetcher = (*SQLFetcher)(nil)

// NewSQLFetcher creates a fetcher reading from database
func NewSQLFetcher(log logger.Logger, database db.Database, cfg *SQLConfig) (*SQLFetcher, error) {
	if cfg == nil {
		cfg = DefaultSQLConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gdb, err := database.DB()
	if err != nil {
		return nil, err
	}
	return &SQLFetcher{logger: log, db: gdb, table: cfg.Table}, nil
}

func (f *SQLFetcher) scope(tx *gorm.DB, q rangecache.Query) *gorm.DB {
	return tx.Table(f.table).
		Where("selection = ?", q.Selection).
		Where("lang = ?", q.Language).
		Where("units = ?", q.Units)
}

func (f *SQLFetcher) windowQuery(tx *gorm.DB, q rangecache.Query, window rangecache.WorkItem) *gorm.DB {
	return f.scope(tx, q).
		Where("sorted_index BETWEEN ? AND ?", max(window.StartRow, 0), window.EndRow).
		Order("sorted_index")
}

// Fetch counts the selection and loads the rows inside window
func (f *SQLFetcher) Fetch(ctx context.Context, q rangecache.Query, window rangecache.WorkItem) (*rangecache.Payload, error) {
	tx := f.db.WithContext(ctx)

	var total int64
	if err := f.scope(tx, q).Count(&total).Error; err != nil {
		return nil, ErrQuery(err)
	}

	var records []rankingRecord
	if err := f.windowQuery(tx, q, window).Find(&records).Error; err != nil {
		return nil, ErrQuery(err)
	}

	rows, err := f.decodeRecords(records)
	if err != nil {
		return nil, err
	}
	return &rangecache.Payload{TotalLength: int(total), Rows: rows}, nil
}

// decodeRecords parses stored payloads; a row whose embedded index disagrees
// with its sorted_index column is dropped.
func (f *SQLFetcher) decodeRecords(records []rankingRecord) ([]rangecache.Row, error) {
	rows := make([]rangecache.Row, 0, len(records))
	for _, rec := range records {
		dec := json.NewDecoder(strings.NewReader(rec.Payload))
		dec.UseNumber()
		var row rangecache.Row
		if err := dec.Decode(&row); err != nil {
			return nil, ErrDecode(err)
		}
		if idx, ok := row.SortedIndex(); !ok || idx != rec.SortedIndex {
			f.logger.Warn("dropping inconsistent ranking row",
				zap.String("table", f.table),
				zap.Int("sorted_index", rec.SortedIndex),
			)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
