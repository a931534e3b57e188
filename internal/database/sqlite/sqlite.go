package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"match-engine/internal/database"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the embedded single-file store used when no PostgreSQL server is configured.
type DB struct {
	sqlDB *sql.DB
}

// Open opens or creates the database file at path.
func Open(ctx context.Context, path string) (database.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return &DB{sqlDB: sqlDB}, nil
}

func (d *DB) Ping(ctx context.Context) error {
	if d == nil || d.sqlDB == nil {
		return database.ErrNoConnection
	}
	return d.sqlDB.PingContext(ctx)
}

func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	return d.sqlDB.Close()
}

func (d *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if d == nil || d.sqlDB == nil {
		return 0, database.ErrNoConnection
	}
	res, err := d.sqlDB.ExecContext(ctx, database.Rebind(database.DialectSQLite, query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	if d == nil || d.sqlDB == nil {
		return nil, database.ErrNoConnection
	}
	r, err := d.sqlDB.QueryContext(ctx, database.Rebind(database.DialectSQLite, query), args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows: r}, nil
}

func (d *DB) Dialect() database.Dialect {
	return database.DialectSQLite
}

func (d *DB) SQLDB() *sql.DB {
	if d == nil {
		return nil
	}
	return d.sqlDB
}

type sqlRows struct {
	rows *sql.Rows
}

func (r sqlRows) Close() {
	_ = r.rows.Close()
}

func (r sqlRows) Next() bool {
	return r.rows.Next()
}

func (r sqlRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r sqlRows) Err() error {
	return r.rows.Err()
}
