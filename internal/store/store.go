// Package store defines the record store the catalog core talks to.
//
// The core never holds a global handle: the importer, the slug generator and
// the catalog service all receive a Store through their constructors. Three
// implementations exist: an in-memory store (tests, demos), PostgreSQL via pgx
// (internal/store/postgres) and embedded SQLite (internal/store/sqlite).
//
// Records are loosely typed column maps. Typed accessors on Record absorb the
// differences between drivers (int64 vs int32, pgtype.Numeric vs string,
// text[] vs JSON text) so callers decode the same way regardless of backend.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Collections known to every backend. SQL stores reject any other name.
const (
	Products                 = "products"
	ProductVariants          = "product_variants"
	Attributes               = "attributes"
	AttributeValues          = "attribute_values"
	Categories               = "categories"
	ProductVariantAttributes = "product_variant_attributes"
)

var collections = map[string]bool{
	Products:                 true,
	ProductVariants:          true,
	Attributes:               true,
	AttributeValues:          true,
	Categories:               true,
	ProductVariantAttributes: true,
}

// ValidCollection reports whether name is a known collection.
func ValidCollection(name string) bool {
	return collections[name]
}

// Error codes shared across backends. Postgres SQLSTATEs are passed through
// unchanged; the other backends map their native errors onto these.
const (
	CodeNotFound          = "not_found"
	CodeUniqueViolation   = "23505"
	CodeForeignKey        = "23503"
	CodeUnknownCollection = "unknown_collection"
	CodeInvalidColumn     = "invalid_column"
	CodeInternal          = "internal"
)

var (
	// ErrNotFound is returned by Find when no record matches.
	ErrNotFound = errors.New("record not found")

	// ErrConflict matches any *Error carrying a unique violation.
	ErrConflict = errors.New("record conflicts with an existing record")
)

// Error is the failure shape every backend returns: a code and message, plus
// the native driver error when there is one.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("store %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers test for ErrNotFound and ErrConflict without knowing the backend.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrConflict:
		return e.Code == CodeUniqueViolation
	}
	return false
}

// Filter is an equality predicate: every column must equal its value.
type Filter map[string]any

// Store is the record store used by the catalog core.
type Store interface {
	// Find returns the first record matching where, or an error matching
	// ErrNotFound.
	Find(ctx context.Context, collection string, where Filter) (Record, error)

	// List returns every record matching where, in insertion order.
	List(ctx context.Context, collection string, where Filter) ([]Record, error)

	// Insert stores fields and returns the stored record, including its id.
	Insert(ctx context.Context, collection string, fields Record) (Record, error)

	// Delete removes every record matching where and returns how many went.
	Delete(ctx context.Context, collection string, where Filter) (int64, error)
}

// Transactor is implemented by stores that can run several writes atomically.
// fn receives a Store bound to the transaction; returning an error rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// Pinger is implemented by stores with a remote connection to health-check.
type Pinger interface {
	Ping(ctx context.Context) error
}
