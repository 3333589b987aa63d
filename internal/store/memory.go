package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// uniqueKeys lists the column sets each collection keeps unique. The SQL
// schemas declare the same constraints as indexes.
var uniqueKeys = map[string][][]string{
	Products:                 {{"slug"}},
	ProductVariants:          {{"sku"}},
	Attributes:               {{"slug"}, {"name_key"}},
	AttributeValues:          {{"attribute_id", "slug"}},
	Categories:               {{"slug"}},
	ProductVariantAttributes: {{"variant_id", "attribute_id"}},
}

// Memory is an in-process Store. It enforces the unique keys above but no
// foreign keys, and has no transactions.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]Record
	now  func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]Record),
		now:  time.Now,
	}
}

func (m *Memory) Find(ctx context.Context, collection string, where Filter) (Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.data[collection] {
		if matches(rec, where) {
			return rec.Clone(), nil
		}
	}
	return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("no %s record matches", collection)}
}

func (m *Memory) List(ctx context.Context, collection string, where Filter) ([]Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.data[collection] {
		if matches(rec, where) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, collection string, fields Record) (Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := fields.Clone()
	if rec.String("id") == "" && collection != ProductVariantAttributes {
		rec["id"] = uuid.NewString()
	}
	if _, ok := rec["created_at"]; !ok {
		rec["created_at"] = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.data[collection] {
		if existing.String("id") != "" && existing.String("id") == rec.String("id") {
			return nil, &Error{Code: CodeUniqueViolation, Message: fmt.Sprintf("%s id %s already exists", collection, rec.String("id"))}
		}
		for _, cols := range uniqueKeys[collection] {
			if sameKey(existing, rec, cols) {
				return nil, &Error{
					Code:    CodeUniqueViolation,
					Message: fmt.Sprintf("duplicate key on %s (%s)", collection, strings.Join(cols, ", ")),
				}
			}
		}
	}

	m.data[collection] = append(m.data[collection], rec)
	return rec.Clone(), nil
}

// Delete removes matching records. An empty filter is refused, the same as
// the SQL stores.
func (m *Memory) Delete(ctx context.Context, collection string, where Filter) (int64, error) {
	if err := checkCollection(collection); err != nil {
		return 0, err
	}
	if len(where) == 0 {
		return 0, &Error{Code: CodeInvalidColumn, Message: "delete without filter"}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.data[collection][:0]
	var deleted int64
	for _, rec := range m.data[collection] {
		if matches(rec, where) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.data[collection] = kept
	return deleted, nil
}

// Count returns how many records a collection holds.
func (m *Memory) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[collection])
}

func checkCollection(name string) error {
	if !ValidCollection(name) {
		return &Error{Code: CodeUnknownCollection, Message: fmt.Sprintf("unknown collection %q", name)}
	}
	return nil
}

func matches(rec Record, where Filter) bool {
	for col, want := range where {
		got, ok := rec[col]
		if !ok {
			return false
		}
		if !equalValues(got, want) {
			return false
		}
	}
	return true
}

func sameKey(a, b Record, cols []string) bool {
	for _, col := range cols {
		av, aok := a[col]
		bv, bok := b[col]
		if !aok || !bok || av == nil || bv == nil {
			return false
		}
		if !equalValues(av, bv) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	return fmt.Sprint(valueOf(a)) == fmt.Sprint(valueOf(b))
}
