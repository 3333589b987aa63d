// Package storetest holds the behaviour every store.Store implementation must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/catalog/internal/store"
)

// Run exercises s against the shared store contract. s must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("find missing returns ErrNotFound", func(t *testing.T) {
		_, err := s.Find(ctx, store.Products, store.Filter{"slug": "does-not-exist"})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("Find() error = %v, want ErrNotFound", err)
		}
		var storeErr *store.Error
		if !errors.As(err, &storeErr) || storeErr.Code != store.CodeNotFound {
			t.Errorf("Find() error should be *store.Error with code %s, got %#v", store.CodeNotFound, err)
		}
	})

	var productID string

	t.Run("insert assigns id and round-trips columns", func(t *testing.T) {
		rec, err := s.Insert(ctx, store.Products, store.Record{
			"name":        "Wireless Mouse",
			"slug":        "wireless-mouse",
			"description": "Two buttons",
			"category_id": "cat-1",
			"is_new":      true,
			"is_featured": false,
		})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		productID = rec.ID()
		if productID == "" {
			t.Fatal("Insert() did not assign an id")
		}

		got, err := s.Find(ctx, store.Products, store.Filter{"slug": "wireless-mouse"})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if got.ID() != productID {
			t.Errorf("Find() id = %q, want %q", got.ID(), productID)
		}
		if got.String("name") != "Wireless Mouse" || got.String("category_id") != "cat-1" {
			t.Errorf("Find() = %v", got)
		}
		if !got.Bool("is_new") || got.Bool("is_featured") {
			t.Errorf("flags = is_new %v, is_featured %v", got.Bool("is_new"), got.Bool("is_featured"))
		}
	})

	t.Run("variant decimal and list columns", func(t *testing.T) {
		_, err := s.Insert(ctx, store.ProductVariants, store.Record{
			"product_id":          productID,
			"sku":                 "MOUSE-1",
			"price":               decimal.RequireFromString("19.999"),
			"stock":               int64(3_000_000_000),
			"low_stock_threshold": 10,
			"images":              []string{"a.png", "b.png"},
		})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		got, err := s.Find(ctx, store.ProductVariants, store.Filter{"sku": "MOUSE-1"})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if !got.Decimal("price").Equal(decimal.RequireFromString("19.999")) {
			t.Errorf("price = %s, want 19.999 unrounded", got.Decimal("price"))
		}
		if got.Int("stock") != 3_000_000_000 {
			t.Errorf("stock = %d, want 3000000000", got.Int("stock"))
		}
		images := got.Strings("images")
		if len(images) != 2 || images[0] != "a.png" || images[1] != "b.png" {
			t.Errorf("images = %v", images)
		}
	})

	t.Run("unique slug is a conflict", func(t *testing.T) {
		_, err := s.Insert(ctx, store.Products, store.Record{
			"name":        "Wireless Mouse 2",
			"slug":        "wireless-mouse",
			"category_id": "cat-1",
		})
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("Insert() duplicate slug error = %v, want ErrConflict", err)
		}
	})

	t.Run("unique sku is a conflict", func(t *testing.T) {
		_, err := s.Insert(ctx, store.ProductVariants, store.Record{
			"product_id": productID,
			"sku":        "MOUSE-1",
			"price":      decimal.Zero,
		})
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("Insert() duplicate sku error = %v, want ErrConflict", err)
		}
	})

	t.Run("list preserves insertion order", func(t *testing.T) {
		for _, sku := range []string{"MOUSE-2", "MOUSE-3"} {
			if _, err := s.Insert(ctx, store.ProductVariants, store.Record{
				"product_id": productID,
				"sku":        sku,
				"price":      decimal.NewFromInt(5),
			}); err != nil {
				t.Fatalf("Insert(%s) error = %v", sku, err)
			}
		}

		recs, err := s.List(ctx, store.ProductVariants, store.Filter{"product_id": productID})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		var skus []string
		for _, r := range recs {
			skus = append(skus, r.String("sku"))
		}
		want := []string{"MOUSE-1", "MOUSE-2", "MOUSE-3"}
		if len(skus) != len(want) {
			t.Fatalf("List() skus = %v, want %v", skus, want)
		}
		for i := range want {
			if skus[i] != want[i] {
				t.Errorf("List() skus = %v, want %v", skus, want)
				break
			}
		}
	})

	t.Run("delete reports affected rows", func(t *testing.T) {
		n, err := s.Delete(ctx, store.ProductVariants, store.Filter{"sku": "MOUSE-3"})
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Delete() = %d, want 1", n)
		}
		n, err = s.Delete(ctx, store.ProductVariants, store.Filter{"sku": "MOUSE-3"})
		if err != nil || n != 0 {
			t.Errorf("second Delete() = %d, %v; want 0, nil", n, err)
		}
	})

	t.Run("delete without filter is rejected", func(t *testing.T) {
		before, err := s.List(ctx, store.ProductVariants, store.Filter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		n, err := s.Delete(ctx, store.ProductVariants, store.Filter{})
		var storeErr *store.Error
		if !errors.As(err, &storeErr) || storeErr.Code != store.CodeInvalidColumn || n != 0 {
			t.Errorf("Delete() = %d, %v; want invalid filter error", n, err)
		}
		after, err := s.List(ctx, store.ProductVariants, store.Filter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(after) != len(before) {
			t.Errorf("records = %d after refused delete, want %d", len(after), len(before))
		}
	})

	t.Run("unknown collection is rejected", func(t *testing.T) {
		_, err := s.Find(ctx, "users; DROP TABLE products", store.Filter{})
		var storeErr *store.Error
		if !errors.As(err, &storeErr) || storeErr.Code != store.CodeUnknownCollection {
			t.Errorf("Find() error = %v, want unknown collection", err)
		}
	})
}

// RunTx checks that WithinTx commits on success and rolls back on error.
func RunTx(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	tx, ok := s.(store.Transactor)
	if !ok {
		t.Fatalf("%T does not implement store.Transactor", s)
	}

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := tx.WithinTx(ctx, func(inner store.Store) error {
			if _, err := inner.Insert(ctx, store.Categories, store.Record{"name": "Rolled", "slug": "rolled"}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WithinTx() error = %v, want boom", err)
		}
		if _, err := s.Find(ctx, store.Categories, store.Filter{"slug": "rolled"}); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("rolled back insert is visible: %v", err)
		}
	})

	t.Run("commit on success", func(t *testing.T) {
		err := tx.WithinTx(ctx, func(inner store.Store) error {
			_, err := inner.Insert(ctx, store.Categories, store.Record{"name": "Kept", "slug": "kept"})
			return err
		})
		if err != nil {
			t.Fatalf("WithinTx() error = %v", err)
		}
		if _, err := s.Find(ctx, store.Categories, store.Filter{"slug": "kept"}); err != nil {
			t.Errorf("committed insert not visible: %v", err)
		}
	})

	t.Run("nested rollback keeps outer writes", func(t *testing.T) {
		err := tx.WithinTx(ctx, func(outer store.Store) error {
			if _, err := outer.Insert(ctx, store.Categories, store.Record{"name": "Outer", "slug": "outer"}); err != nil {
				return err
			}
			nested, ok := outer.(store.Transactor)
			if !ok {
				t.Fatalf("%T inside a transaction does not implement store.Transactor", outer)
			}
			_ = nested.WithinTx(ctx, func(inner store.Store) error {
				if _, err := inner.Insert(ctx, store.Categories, store.Record{"name": "Inner", "slug": "inner"}); err != nil {
					return err
				}
				return errors.New("undo inner")
			})
			return nil
		})
		if err != nil {
			t.Fatalf("WithinTx() error = %v", err)
		}
		if _, err := s.Find(ctx, store.Categories, store.Filter{"slug": "outer"}); err != nil {
			t.Errorf("outer insert lost: %v", err)
		}
		if _, err := s.Find(ctx, store.Categories, store.Filter{"slug": "inner"}); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("inner insert survived savepoint rollback: %v", err)
		}
	})
}
