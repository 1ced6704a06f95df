// Package repository resolves search hits back into rows of a SQL table.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go SQLite driver, registered as "sqlite"

	"github.com/addls/scout/internal/config"
	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/pkg/search"
)

// maxParams keeps IN lists below SQLite's default bound-parameter limit.
const maxParams = 500

// SQLRepository is a search.RecordRepository over one SQLite table. Every
// column of a row is a searchable field.
type SQLRepository struct {
	db    *sql.DB
	owned bool
	table string
	key   string
	types *lru.Cache[string, search.ColumnType]
}

var _ search.RecordRepository = (*SQLRepository)(nil)

// Open opens the database described by cfg. The repository owns the
// connection and closes it in Close.
func Open(cfg config.RepositoryConfig) (*SQLRepository, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, scerrors.RepositoryError("failed to open database", err).WithDetail("dsn", cfg.DSN)
	}
	// SQLite allows one writer; a single connection also keeps
	// ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	repo, err := New(db, cfg.Table, cfg.Key, cfg.ColumnCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	repo.owned = true
	return repo, nil
}

// New wraps an open database. cacheSize bounds the number of cached column
// types; zero disables caching.
func New(db *sql.DB, table, key string, cacheSize int) (*SQLRepository, error) {
	if table == "" || key == "" {
		return nil, scerrors.ValidationError("repository table and key are required", nil)
	}
	r := &SQLRepository{db: db, table: table, key: key}
	if cacheSize > 0 {
		cache, err := lru.New[string, search.ColumnType](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create column cache: %w", err)
		}
		r.types = cache
	}
	return r, nil
}

// DB returns the underlying database.
func (r *SQLRepository) DB() *sql.DB { return r.db }

// Table implements search.RecordRepository.
func (r *SQLRepository) Table() string { return r.table }

// KeyName implements search.RecordRepository.
func (r *SQLRepository) KeyName() string { return r.key }

// ColumnType reports whether table.column has INTEGER affinity. Columns the
// table does not have are text.
func (r *SQLRepository) ColumnType(ctx context.Context, table, column string) (search.ColumnType, error) {
	cacheKey := table + "." + column
	if r.types != nil {
		if t, ok := r.types.Get(cacheKey); ok {
			return t, nil
		}
	}

	cols, err := r.tableInfo(ctx, table)
	if err != nil {
		return search.ColumnText, err
	}

	typ := search.ColumnText
	for name, declared := range cols {
		t := affinity(declared)
		if r.types != nil {
			r.types.Add(table+"."+name, t)
		}
		if name == column {
			typ = t
		}
	}
	return typ, nil
}

// tableInfo returns column name -> declared type.
func (r *SQLRepository) tableInfo(ctx context.Context, table string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, scerrors.RepositoryError("failed to read table schema", err).WithDetail("table", table)
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var name, declared string
		if err := rows.Scan(&name, &declared); err != nil {
			return nil, scerrors.RepositoryError("failed to read table schema", err).WithDetail("table", table)
		}
		cols[name] = declared
	}
	if err := rows.Err(); err != nil {
		return nil, scerrors.RepositoryError("failed to read table schema", err).WithDetail("table", table)
	}
	if len(cols) == 0 {
		return nil, scerrors.New(scerrors.ErrCodeTableNotFound, fmt.Sprintf("table %q not found", table), nil).
			WithDetail("table", table)
	}
	return cols, nil
}

// affinity applies SQLite's first type-affinity rule: a declared type
// containing "INT" stores integers.
func affinity(declared string) search.ColumnType {
	if strings.Contains(strings.ToUpper(declared), "INT") {
		return search.ColumnNumeric
	}
	return search.ColumnText
}

// FetchByIDs implements search.RecordRepository.
func (r *SQLRepository) FetchByIDs(ctx context.Context, ids []string) (map[string]search.Record, error) {
	out := make(map[string]search.Record, len(ids))
	for start := 0; start < len(ids); start += maxParams {
		chunk := ids[start:min(start+maxParams, len(ids))]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		q := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)",
			quoteIdent(r.table), quoteIdent(r.key), placeholders(len(chunk)))

		if err := r.scan(ctx, q, args, func(rec *search.Document) {
			out[rec.ID] = rec
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// All returns every row of the table ordered by key.
func (r *SQLRepository) All(ctx context.Context) ([]search.Record, error) {
	var out []search.Record
	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quoteIdent(r.table), quoteIdent(r.key))
	err := r.scan(ctx, q, nil, func(rec *search.Document) {
		out = append(out, rec)
	})
	return out, err
}

// Stubs returns key-only records for ids, enough for deleting from an
// index after the rows are gone.
func (r *SQLRepository) Stubs(ids []string) []search.Record {
	out := make([]search.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, &search.Document{ID: id, Type: r.table, Fields: map[string]any{r.key: id}})
	}
	return out
}

func (r *SQLRepository) scan(ctx context.Context, q string, args []any, emit func(*search.Document)) error {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return scerrors.RepositoryError("failed to query records", err).WithDetail("table", r.table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return scerrors.RepositoryError("failed to read columns", err)
	}

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return scerrors.RepositoryError("failed to scan record", err).WithDetail("table", r.table)
		}

		fields := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			fields[c] = values[i]
		}
		emit(&search.Document{ID: fmt.Sprint(fields[r.key]), Type: r.table, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return scerrors.RepositoryError("failed to iterate records", err).WithDetail("table", r.table)
	}
	return nil
}

// Close closes the database if the repository opened it.
func (r *SQLRepository) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
