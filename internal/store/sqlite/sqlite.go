// Package sqlite implements the catalog store on an embedded SQLite database
// (modernc.org/sqlite, no cgo). It backs local runs of the CLI and the
// integration tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JonMunkholm/catalog/internal/store"
)

//go:embed schema.sql
var schema string

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store is a store.Store on database/sql. Inside WithinTx it is bound to the
// transaction; nested calls use savepoints.
type Store struct {
	db    *sql.DB
	q     queryer
	tx    *sql.Tx
	depth int
}

// Open opens (creating if needed) the database at path with foreign keys on.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Each connection to :memory: is its own database.
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db, q: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the catalog tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", mapError(err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Find(ctx context.Context, collection string, where store.Filter) (store.Record, error) {
	stmt, err := store.SQLite.SelectSQL(collection, where, 1)
	if err != nil {
		return nil, err
	}
	recs, err := s.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &store.Error{Code: store.CodeNotFound, Message: fmt.Sprintf("no %s record matches", collection)}
	}
	return recs[0], nil
}

func (s *Store) List(ctx context.Context, collection string, where store.Filter) ([]store.Record, error) {
	stmt, err := store.SQLite.SelectSQL(collection, where, 0)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, stmt)
}

func (s *Store) Insert(ctx context.Context, collection string, fields store.Record) (store.Record, error) {
	rec := fields.Clone()
	if collection != store.ProductVariantAttributes && rec.String("id") == "" {
		rec["id"] = uuid.NewString()
	}
	for k, v := range rec {
		rec[k] = bindValue(v)
	}

	stmt, err := store.SQLite.InsertSQL(collection, rec)
	if err != nil {
		return nil, err
	}
	recs, err := s.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(recs) != 1 {
		return nil, &store.Error{Code: store.CodeInternal, Message: fmt.Sprintf("insert returned %d rows", len(recs))}
	}
	return recs[0], nil
}

func (s *Store) Delete(ctx context.Context, collection string, where store.Filter) (int64, error) {
	stmt, err := store.SQLite.DeleteSQL(collection, where)
	if err != nil {
		return 0, err
	}
	res, err := s.q.ExecContext(ctx, stmt.SQL, bindArgs(stmt.Args)...)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// WithinTx runs fn in a transaction, or a savepoint when already inside one.
func (s *Store) WithinTx(ctx context.Context, fn func(store.Store) error) error {
	if s.tx != nil {
		return s.withinSavepoint(ctx, fn)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

func (s *Store) withinSavepoint(ctx context.Context, fn func(store.Store) error) error {
	name := fmt.Sprintf("sp_%d", s.depth+1)
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint: %w", mapError(err))
	}

	if err := fn(&Store{db: s.db, q: s.tx, tx: s.tx, depth: s.depth + 1}); err != nil {
		_, _ = s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
		_, _ = s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
		return err
	}

	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", mapError(err))
	}
	return nil
}

func (s *Store) query(ctx context.Context, stmt store.Statement) ([]store.Record, error) {
	rows, err := s.q.QueryContext(ctx, stmt.SQL, bindArgs(stmt.Args)...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, mapError(err)
	}

	var out []store.Record
	for rows.Next() {
		values := make([]any, len(cols))
		scans := make([]any, len(cols))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return nil, mapError(err)
		}

		rec := make(store.Record, len(cols))
		for i, col := range cols {
			rec[col] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func bindArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = bindValue(a)
	}
	return out
}

// bindValue stores lists as JSON text and decimals as exact strings.
func bindValue(v any) any {
	switch t := v.(type) {
	case []string:
		if t == nil {
			t = []string{}
		}
		b, _ := json.Marshal(t)
		return string(b)
	case decimal.Decimal:
		return t.String()
	default:
		return v
	}
}

// mapError converts SQLite constraint failures onto the shared store codes.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := store.CodeInternal
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			code = store.CodeUniqueViolation
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			code = store.CodeForeignKey
		case sqlite3.SQLITE_CONSTRAINT:
			// Primary code only when extended result codes are off.
			msg := sqliteErr.Error()
			if strings.Contains(msg, "UNIQUE constraint failed") {
				code = store.CodeUniqueViolation
			} else if strings.Contains(msg, "FOREIGN KEY constraint failed") {
				code = store.CodeForeignKey
			}
		}
		return &store.Error{Code: code, Message: sqliteErr.Error(), Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &store.Error{Code: store.CodeInternal, Message: "query failed", Err: err}
}
