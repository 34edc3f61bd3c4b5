// Package db opens the MySQL replica that materialized rankings are read from.
//
// Connections go through gorm with a zap-backed query logger; the handle is
// read-mostly, so default write transactions are disabled.
package db

import (
	"context"

	"gorm.io/gorm"
)

// Database is a gorm-backed connection handle
type Database interface {
	DB() (*gorm.DB, error)
	Ping(ctx context.Context) error
	Close() error
}
