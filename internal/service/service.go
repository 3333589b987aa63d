// Package service is the entry point the HTTP server and CLI share. It ties
// the repository, importer, resolver and cache together so transports never
// touch the store directly.
package service

import (
	"context"
	"errors"
	"io"

	"github.com/JonMunkholm/catalog/internal/cache"
	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/importer"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/repository"
	"github.com/JonMunkholm/catalog/internal/store"
	"github.com/JonMunkholm/catalog/internal/variant"
)

// Service provides catalog reads, variant resolution, admin writes and imports.
type Service struct {
	repo     *repository.Repository
	importer *importer.Importer
	cache    *cache.ProductCache
}

// New returns a Service. products may be nil. Imports invalidate cached
// entries for the products they create.
func New(repo *repository.Repository, imp *importer.Importer, products *cache.ProductCache) *Service {
	if products == nil {
		products = cache.New(nil, 0)
	}
	s := &Service{repo: repo, importer: imp, cache: products}
	imp.OnComplete(s.invalidateImported)
	return s
}

// Importer returns the importer, for registering more hooks.
func (s *Service) Importer() *importer.Importer {
	return s.importer
}

// Product returns the product with its variants, from cache when possible.
func (s *Service) Product(ctx context.Context, slug string) (catalog.Product, error) {
	if p, ok := s.cache.Get(ctx, slug); ok {
		return p, nil
	}

	p, err := s.repo.ProductBySlug(ctx, slug)
	if err != nil {
		return catalog.Product{}, err
	}
	if err := s.cache.Set(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("product not cached", "slug", slug, "error", err)
	}
	return p, nil
}

// Resolution is the resolver's answer for one selection.
type Resolution struct {
	Facets    []string          `json:"facets"`
	Options   variant.Options   `json:"options"`
	Variant   *catalog.Variant  `json:"variant"`
	State     variant.State     `json:"state"`
	Selection catalog.Selection `json:"selection"`
	Defaulted bool              `json:"defaulted,omitempty"`
}

// Resolve computes the choosable values and the matching variant for sel on
// the product named by slug. A selection matching nothing is not an error:
// Variant is nil and State is Unresolvable.
func (s *Service) Resolve(ctx context.Context, slug string, sel catalog.Selection) (Resolution, error) {
	p, err := s.Product(ctx, slug)
	if err != nil {
		return Resolution{}, err
	}
	return resolve(p.Variants, sel), nil
}

// ResolveOrDefault is Resolve, except that a selection matching nothing
// falls back to the product's first variant. State still reports the
// selection as Unresolvable; Defaulted is set.
func (s *Service) ResolveOrDefault(ctx context.Context, slug string, sel catalog.Selection) (Resolution, error) {
	p, err := s.Product(ctx, slug)
	if err != nil {
		return Resolution{}, err
	}
	res := resolve(p.Variants, sel)
	if res.Variant == nil {
		if v, ok := variant.ResolveOrDefault(p.Variants, res.Selection); ok {
			res.Variant = &v
			res.Defaulted = true
		}
	}
	return res, nil
}

func resolve(variants []catalog.Variant, sel catalog.Selection) Resolution {
	session := variant.NewSessionFrom(variants, sel)
	res := Resolution{
		Facets:    session.Facets(),
		Options:   session.Options(),
		State:     session.State(),
		Selection: session.Selection(),
	}
	if v, ok := session.Variant(); ok {
		res.Variant = &v
	}
	return res
}

// CreateAttribute adds an attribute with a unique slug.
func (s *Service) CreateAttribute(ctx context.Context, name string) (catalog.Attribute, error) {
	return s.repo.CreateAttribute(ctx, name)
}

// CreateAttributeValue adds a value to an attribute.
func (s *Service) CreateAttributeValue(ctx context.Context, attributeID, value string) (catalog.AttributeValue, error) {
	return s.repo.CreateAttributeValue(ctx, attributeID, value)
}

// CreateCategory adds a category with a unique slug.
func (s *Service) CreateCategory(ctx context.Context, name string) (repository.Category, error) {
	return s.repo.CreateCategory(ctx, name)
}

// CreateVariant adds a variant to the product named by slug. Variants with two
// values for one attribute are rejected with catalog.ErrDuplicateAttribute.
func (s *Service) CreateVariant(ctx context.Context, slug string, v catalog.Variant) (catalog.Variant, error) {
	p, err := s.repo.ProductBySlug(ctx, slug)
	if err != nil {
		return catalog.Variant{}, err
	}
	v.ProductID = p.ID

	var created catalog.Variant
	err = s.withinTx(ctx, func(r *repository.Repository) error {
		created, err = r.CreateVariant(ctx, v)
		return err
	})
	if err != nil {
		return catalog.Variant{}, err
	}

	if err := s.cache.Invalidate(ctx, slug); err != nil {
		logging.FromContext(ctx).Warn("product cache not invalidated", "slug", slug, "error", err)
	}
	return created, nil
}

// Import runs a file import. name selects the format by extension.
func (s *Service) Import(ctx context.Context, name string, r io.Reader, limit int64) (importer.Outcome, error) {
	return s.importer.ImportFile(ctx, name, r, limit)
}

// ImportText imports raw delimited text.
func (s *Service) ImportText(ctx context.Context, raw string) (importer.Outcome, error) {
	return s.importer.Import(ctx, raw)
}

// Ping checks the store when it has a remote connection.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.repo.Store().(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// withinTx runs fn in a transaction when the store supports one.
func (s *Service) withinTx(ctx context.Context, fn func(*repository.Repository) error) error {
	tx, ok := s.repo.Store().(store.Transactor)
	if !ok {
		return fn(s.repo)
	}
	return tx.WithinTx(ctx, func(st store.Store) error {
		return fn(s.repo.Bind(st))
	})
}

func (s *Service) invalidateImported(ctx context.Context, out importer.Outcome) {
	if len(out.Products) == 0 {
		return
	}
	slugs := make([]string, len(out.Products))
	for i, p := range out.Products {
		slugs[i] = p.Slug
	}
	if err := s.cache.Invalidate(ctx, slugs...); err != nil {
		logging.WithFields(ctx, "run_id", out.RunID).Warn("imported products not invalidated", "error", err)
	}
}

// IsNotFound reports whether err means the requested product does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, catalog.ErrProductNotFound)
}
