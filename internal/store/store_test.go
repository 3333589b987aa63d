package store_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/catalog/internal/store"
	"github.com/JonMunkholm/catalog/internal/store/storetest"
)

func TestMemory_Contract(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}

func TestMemory_NotTransactional(t *testing.T) {
	var s store.Store = store.NewMemory()
	if _, ok := s.(store.Transactor); ok {
		t.Error("memory store should not implement Transactor")
	}
}

func TestMemory_CompositeUniqueKey(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	first := store.Record{"variant_id": "v1", "attribute_id": "color", "value_id": "red"}
	if _, err := m.Insert(ctx, store.ProductVariantAttributes, first); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	// Same variant, different attribute: fine.
	if _, err := m.Insert(ctx, store.ProductVariantAttributes, store.Record{
		"variant_id": "v1", "attribute_id": "size", "value_id": "m",
	}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	// Same variant and attribute: second value rejected.
	_, err := m.Insert(ctx, store.ProductVariantAttributes, store.Record{
		"variant_id": "v1", "attribute_id": "color", "value_id": "blue",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("Insert() error = %v, want ErrConflict", err)
	}
	if got := m.Count(store.ProductVariantAttributes); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestMemory_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.NewMemory().Find(ctx, store.Products, store.Filter{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Find() error = %v, want context.Canceled", err)
	}
}

// ============================================================================
// Error Tests
// ============================================================================

func TestError_Is(t *testing.T) {
	cause := errors.New("driver says no")
	err := &store.Error{Code: store.CodeUniqueViolation, Message: "duplicate", Err: cause}

	if !errors.Is(err, store.ErrConflict) {
		t.Error("unique violation should match ErrConflict")
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Error("unique violation should not match ErrNotFound")
	}
	if !errors.Is(err, cause) {
		t.Error("Error should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "23505") || !strings.Contains(err.Error(), "driver says no") {
		t.Errorf("Error() = %q", err.Error())
	}
}

// ============================================================================
// Record Accessor Tests
// ============================================================================

type fakeNumeric string

func (f fakeNumeric) Value() (driver.Value, error) { return string(f), nil }

func TestRecord_Accessors(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := store.Record{
		"id":        [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0},
		"stock32":   int32(4),
		"stock64":   int64(5),
		"flag_int":  int64(1),
		"flag_bool": true,
		"price":     fakeNumeric("12.50"),
		"price_f":   2.5,
		"bad_price": "abc",
		"images_pg": []any{"a.png", "b.png"},
		"images_js": `["c.png"]`,
		"created":   now,
		"created_s": "2024-05-01T12:00:00.000Z",
	}

	if got := r.ID(); got != "12345678-9abc-def0-1234-56789abcdef0" {
		t.Errorf("ID() = %q", got)
	}
	if r.Int("stock32") != 4 || r.Int("stock64") != 5 || r.Int("missing") != 0 {
		t.Errorf("Int() = %d, %d, %d", r.Int("stock32"), r.Int("stock64"), r.Int("missing"))
	}
	if !r.Bool("flag_int") || !r.Bool("flag_bool") || r.Bool("missing") {
		t.Error("Bool() mismatch")
	}
	if !r.Decimal("price").Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Decimal(price) = %s", r.Decimal("price"))
	}
	if !r.Decimal("price_f").Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Decimal(price_f) = %s", r.Decimal("price_f"))
	}
	if !r.Decimal("bad_price").IsZero() {
		t.Errorf("Decimal(bad_price) = %s, want 0", r.Decimal("bad_price"))
	}
	if got := r.Strings("images_pg"); len(got) != 2 || got[1] != "b.png" {
		t.Errorf("Strings(images_pg) = %v", got)
	}
	if got := r.Strings("images_js"); len(got) != 1 || got[0] != "c.png" {
		t.Errorf("Strings(images_js) = %v", got)
	}
	if !r.Time("created").Equal(now) || !r.Time("created_s").Equal(now) {
		t.Errorf("Time() = %v, %v", r.Time("created"), r.Time("created_s"))
	}
}

// ============================================================================
// SQL Builder Tests
// ============================================================================

func TestDialect_SelectSQL(t *testing.T) {
	stmt, err := store.Postgres.SelectSQL(store.Products, store.Filter{"slug": "x", "category_id": "c"}, 1)
	if err != nil {
		t.Fatalf("SelectSQL() error = %v", err)
	}
	want := `SELECT * FROM "products" WHERE "category_id" = $1 AND "slug" = $2 ORDER BY seq LIMIT 1`
	if stmt.SQL != want {
		t.Errorf("SQL = %q\nwant  %q", stmt.SQL, want)
	}
	if len(stmt.Args) != 2 || stmt.Args[0] != "c" || stmt.Args[1] != "x" {
		t.Errorf("Args = %v", stmt.Args)
	}
}

func TestDialect_InsertSQL(t *testing.T) {
	stmt, err := store.SQLite.InsertSQL(store.Categories, store.Record{"slug": "s", "name": "n"})
	if err != nil {
		t.Fatalf("InsertSQL() error = %v", err)
	}
	want := `INSERT INTO "categories" ("name", "slug") VALUES (?, ?) RETURNING *`
	if stmt.SQL != want {
		t.Errorf("SQL = %q\nwant  %q", stmt.SQL, want)
	}
}

func TestDialect_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"unknown collection", func() error {
			_, err := store.Postgres.SelectSQL("pg_user", nil, 0)
			return err
		}},
		{"bad column", func() error {
			_, err := store.Postgres.SelectSQL(store.Products, store.Filter{`slug" OR 1=1 --`: "x"}, 0)
			return err
		}},
		{"delete without filter", func() error {
			_, err := store.Postgres.DeleteSQL(store.Products, nil)
			return err
		}},
		{"insert without columns", func() error {
			_, err := store.SQLite.InsertSQL(store.Products, store.Record{})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var storeErr *store.Error
			if err := tt.fn(); !errors.As(err, &storeErr) {
				t.Errorf("error = %v, want *store.Error", err)
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := store.QuoteIdentifier(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteIdentifier() = %s", got)
	}
}
