// Package repository maps catalog types onto store records.
//
// A Repository is cheap to create and carries no state beyond its store and
// slug generator, so transactional callers bind a fresh one to the
// transaction's store with Bind.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/slug"
	"github.com/JonMunkholm/catalog/internal/store"
)

var (
	// ErrAttributeExists is returned when an attribute name is already taken (case-insensitive).
	ErrAttributeExists = errors.New("attribute already exists")

	// ErrAttributeNotFound is returned when a referenced attribute does not exist.
	ErrAttributeNotFound = errors.New("attribute not found")

	// ErrAttributeValueNotFound is returned when a referenced value does not exist
	// or belongs to another attribute.
	ErrAttributeValueNotFound = errors.New("attribute value not found")
)

// Repository reads and writes catalog entities through a store.Store.
type Repository struct {
	store store.Store
	slugs *slug.Generator
}

// New returns a Repository over s. Slugs for attributes, values and
// categories come from slugs.
func New(s store.Store, slugs *slug.Generator) *Repository {
	return &Repository{store: s, slugs: slugs}
}

// Bind returns a Repository writing through s, with the slug generator
// re-bound so uniqueness probes see the same transaction.
func (r *Repository) Bind(s store.Store) *Repository {
	return &Repository{store: s, slugs: r.slugs.Bind(s)}
}

// Store returns the underlying store.
func (r *Repository) Store() store.Store {
	return r.store
}

// Slugs returns the slug generator.
func (r *Repository) Slugs() *slug.Generator {
	return r.slugs
}

// ============================================================================
// Products
// ============================================================================

// CreateProduct inserts p. p.Slug must already be unique; the product's
// variants are not written.
func (r *Repository) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	rec, err := r.store.Insert(ctx, store.Products, store.Record{
		"name":           p.Name,
		"slug":           p.Slug,
		"description":    p.Description,
		"category_id":    p.CategoryID,
		"is_new":         p.IsNew,
		"is_featured":    p.IsFeatured,
		"is_trending":    p.IsTrending,
		"is_best_seller": p.IsBestSeller,
	})
	if err != nil {
		return catalog.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return productFromRecord(rec), nil
}

// ProductBySlug loads a product with its variants and their attribute pairs.
func (r *Repository) ProductBySlug(ctx context.Context, slug string) (catalog.Product, error) {
	rec, err := r.store.Find(ctx, store.Products, store.Filter{"slug": slug})
	if errors.Is(err, store.ErrNotFound) {
		return catalog.Product{}, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, slug)
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("find product: %w", err)
	}

	p := productFromRecord(rec)
	p.Variants, err = r.variantsOf(ctx, p.ID)
	if err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

// DeleteProduct removes a product, its variants and their attribute links.
// Stores without cascading deletes rely on this order.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	variants, err := r.store.List(ctx, store.ProductVariants, store.Filter{"product_id": id})
	if err != nil {
		return fmt.Errorf("list variants: %w", err)
	}
	for _, v := range variants {
		if _, err := r.store.Delete(ctx, store.ProductVariantAttributes, store.Filter{"variant_id": v.ID()}); err != nil {
			return fmt.Errorf("delete variant attributes: %w", err)
		}
	}
	if len(variants) > 0 {
		if _, err := r.store.Delete(ctx, store.ProductVariants, store.Filter{"product_id": id}); err != nil {
			return fmt.Errorf("delete variants: %w", err)
		}
	}
	if _, err := r.store.Delete(ctx, store.Products, store.Filter{"id": id}); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func productFromRecord(rec store.Record) catalog.Product {
	return catalog.Product{
		ID:           rec.ID(),
		Name:         rec.String("name"),
		Slug:         rec.String("slug"),
		Description:  rec.String("description"),
		CategoryID:   rec.String("category_id"),
		IsNew:        rec.Bool("is_new"),
		IsFeatured:   rec.Bool("is_featured"),
		IsTrending:   rec.Bool("is_trending"),
		IsBestSeller: rec.Bool("is_best_seller"),
	}
}

// ============================================================================
// Categories
// ============================================================================

// Category is a product grouping.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CreateCategory inserts a category with a unique slug.
func (r *Repository) CreateCategory(ctx context.Context, name string) (Category, error) {
	s, err := r.slugs.EnsureUnique(ctx, store.Categories, name)
	if err != nil {
		return Category{}, err
	}
	rec, err := r.store.Insert(ctx, store.Categories, store.Record{"name": name, "slug": s})
	if err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	return Category{ID: rec.ID(), Name: rec.String("name"), Slug: rec.String("slug")}, nil
}
