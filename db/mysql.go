package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/dailyyoga/gridcache/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ErrNotConnected is returned by a Database wrapping a nil gorm handle
var ErrNotConnected = errors.New("db: no rankings database handle")

// ErrConnect wraps a MySQL failure; op names the step that failed
func ErrConnect(op string, err error) error {
	return fmt.Errorf("db: %s rankings database: %w", op, err)
}

type mysqlDatabase struct {
	logger logger.Logger
	db     *gorm.DB
}

// NewMySQL connects to MySQL and verifies the connection with a ping
func NewMySQL(log logger.Logger, cfg *Config) (Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig(log, cfg))
	if err != nil {
		return nil, ErrConnect("open", err)
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, ErrConnect("open", err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqldb.Ping(); err != nil {
		return nil, ErrConnect("ping", err)
	}

	log.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return &mysqlDatabase{logger: log, db: gdb}, nil
}

// Wrap adapts an already opened gorm handle
func Wrap(log logger.Logger, gdb *gorm.DB) Database {
	return &mysqlDatabase{logger: log, db: gdb}
}

func gormConfig(log logger.Logger, cfg *Config) *gorm.Config {
	return &gorm.Config{
		Logger:                 newGormLogger(log, parseLogLevel(cfg.LogLevel), cfg.SlowThreshold),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
	}
}

func (m *mysqlDatabase) DB() (*gorm.DB, error) {
	if m.db == nil {
		return nil, ErrNotConnected
	}
	return m.db, nil
}

func (m *mysqlDatabase) Ping(ctx context.Context) error {
	if m.db == nil {
		return ErrNotConnected
	}
	sqldb, err := m.db.DB()
	if err != nil {
		return ErrConnect("ping", err)
	}
	return sqldb.PingContext(ctx)
}

func (m *mysqlDatabase) Close() error {
	if m.db == nil {
		return ErrNotConnected
	}
	sqldb, err := m.db.DB()
	if err != nil {
		return ErrConnect("close", err)
	}
	return sqldb.Close()
}
