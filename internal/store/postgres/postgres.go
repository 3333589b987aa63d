// Package postgres implements the catalog store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/store"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store is a store.Store backed by a pgx pool. Inside WithinTx it is bound to
// the transaction instead.
type Store struct {
	pool *pgxpool.Pool
	q    querier
	tx   pgx.Tx
}

// Open parses the database settings, connects and pings.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// New wraps an open pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// Migrate creates the catalog tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", mapError(err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Find(ctx context.Context, collection string, where store.Filter) (store.Record, error) {
	stmt, err := store.Postgres.SelectSQL(collection, where, 1)
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, stmt.SQL, plainArgs(stmt.Args)...)
	if err != nil {
		return nil, mapError(err)
	}
	rec, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &store.Error{Code: store.CodeNotFound, Message: fmt.Sprintf("no %s record matches", collection)}
	}
	if err != nil {
		return nil, mapError(err)
	}
	return store.Record(rec), nil
}

func (s *Store) List(ctx context.Context, collection string, where store.Filter) ([]store.Record, error) {
	stmt, err := store.Postgres.SelectSQL(collection, where, 0)
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, stmt.SQL, plainArgs(stmt.Args)...)
	if err != nil {
		return nil, mapError(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]store.Record, len(maps))
	for i, m := range maps {
		out[i] = store.Record(m)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, collection string, fields store.Record) (store.Record, error) {
	rec := fields.Clone()
	if collection != store.ProductVariantAttributes && rec.String("id") == "" {
		rec["id"] = uuid.NewString()
	}

	stmt, err := store.Postgres.InsertSQL(collection, rec)
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, stmt.SQL, plainArgs(stmt.Args)...)
	if err != nil {
		return nil, mapError(err)
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, mapError(err)
	}
	return store.Record(out), nil
}

func (s *Store) Delete(ctx context.Context, collection string, where store.Filter) (int64, error) {
	stmt, err := store.Postgres.DeleteSQL(collection, where)
	if err != nil {
		return 0, err
	}

	tag, err := s.q.Exec(ctx, stmt.SQL, plainArgs(stmt.Args)...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// WithinTx runs fn in a transaction. Nested calls become savepoints.
func (s *Store) WithinTx(ctx context.Context, fn func(store.Store) error) error {
	var (
		tx  pgx.Tx
		err error
	)
	if s.tx != nil {
		tx, err = s.tx.Begin(ctx)
	} else {
		tx, err = s.pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{pool: s.pool, q: tx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

// plainArgs turns driver.Valuer arguments such as decimal.Decimal into their
// driver value so pgx sends them as text and the server casts them.
func plainArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case time.Time, nil:
			out[i] = v
		case driver.Valuer:
			plain, err := v.Value()
			if err != nil {
				out[i] = a
				continue
			}
			out[i] = plain
		default:
			out[i] = a
		}
	}
	return out
}

// mapError converts pgx errors into *store.Error, keeping the SQLSTATE.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &store.Error{Code: pgErr.Code, Message: pgErr.Message, Err: err}
	}
	return &store.Error{Code: store.CodeInternal, Message: "query failed", Err: err}
}
