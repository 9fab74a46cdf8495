package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

const busyTimeoutMillis = 5000

// NewSQLiteWriter opens the single writer connection. Only the write
// executor may use it.
func NewSQLiteWriter(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate", path, busyTimeoutMillis)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteReader opens the shared read-only connection used for listings
// and snapshots. The database file must already exist.
func NewSQLiteReader(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d", path, busyTimeoutMillis)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	return db, nil
}

// SetupSchema creates the comment table through the writer. It is safe to
// run against an existing database.
func SetupSchema(ctx context.Context, writer *sqlx.DB, path string, log *zap.Logger) error {
	if _, err := os.Stat(path); err == nil {
		log.Info("database already exists, verifying schema", zap.String("path", path))
	} else {
		log.Info("setting up schema", zap.String("path", path))
	}

	if _, err := writer.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
