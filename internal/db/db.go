package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

func NewBunPostgresClient(connectionString string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connectionString)))

	db := bun.NewDB(sqldb, pgdialect.New())

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	return db
}

// NewBunSQLiteClient opens dsn with the pure-Go SQLite driver in WAL mode.
func NewBunSQLiteClient(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one connection serializes writers and keeps :memory: databases alive
	sqldb.SetMaxOpenConns(1)

	if _, err := sqldb.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := sqldb.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Open returns a client for driver "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string) (*bun.DB, error) {
	switch driver {
	case "postgres":
		return NewBunPostgresClient(dsn), nil
	case "sqlite":
		return NewBunSQLiteClient(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
