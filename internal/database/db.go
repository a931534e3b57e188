package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var ErrNoConnection = errors.New("database: no connection")

// DB is the storage handle shared by the PostgreSQL pool and the embedded SQLite file.
// Queries are written with $n placeholders; Rebind adapts them to the dialect.
// SQLDB exposes the pool to the migration runner, which owns its transactions.
type DB interface {
	Ping(ctx context.Context) error
	Close() error

	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)

	Dialect() Dialect
	SQLDB() *sql.DB
}

type Rows interface {
	Close()
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Rebind rewrites $1, $2... placeholders into ? for dialects that need it.
func Rebind(d Dialect, query string) string {
	if d != DialectSQLite || !strings.Contains(query, "$") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
		i = j - 1
	}
	return b.String()
}
