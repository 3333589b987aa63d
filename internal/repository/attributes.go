package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/store"
)

// CreateAttribute inserts a new attribute. Names are unique case-insensitively.
func (r *Repository) CreateAttribute(ctx context.Context, name string) (catalog.Attribute, error) {
	name = strings.TrimSpace(name)
	key := catalog.NormalizeName(name)

	_, err := r.store.Find(ctx, store.Attributes, store.Filter{"name_key": key})
	if err == nil {
		return catalog.Attribute{}, fmt.Errorf("%w: %q", ErrAttributeExists, name)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return catalog.Attribute{}, fmt.Errorf("find attribute: %w", err)
	}

	s, err := r.slugs.EnsureUnique(ctx, store.Attributes, name)
	if err != nil {
		return catalog.Attribute{}, err
	}

	rec, err := r.store.Insert(ctx, store.Attributes, store.Record{
		"name":     name,
		"name_key": key,
		"slug":     s,
	})
	if errors.Is(err, store.ErrConflict) {
		return catalog.Attribute{}, fmt.Errorf("%w: %q", ErrAttributeExists, name)
	}
	if err != nil {
		return catalog.Attribute{}, fmt.Errorf("insert attribute: %w", err)
	}
	return attributeFromRecord(rec), nil
}

// EnsureAttribute returns the attribute named name, creating it if needed.
func (r *Repository) EnsureAttribute(ctx context.Context, name string) (catalog.Attribute, error) {
	rec, err := r.store.Find(ctx, store.Attributes, store.Filter{"name_key": catalog.NormalizeName(name)})
	if err == nil {
		return attributeFromRecord(rec), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return catalog.Attribute{}, fmt.Errorf("find attribute: %w", err)
	}
	return r.CreateAttribute(ctx, name)
}

// Attribute loads an attribute by id.
func (r *Repository) Attribute(ctx context.Context, id string) (catalog.Attribute, error) {
	rec, err := r.store.Find(ctx, store.Attributes, store.Filter{"id": id})
	if errors.Is(err, store.ErrNotFound) {
		return catalog.Attribute{}, fmt.Errorf("%w: %s", ErrAttributeNotFound, id)
	}
	if err != nil {
		return catalog.Attribute{}, fmt.Errorf("find attribute: %w", err)
	}
	return attributeFromRecord(rec), nil
}

// CreateAttributeValue adds value to the attribute. Slugs are unique per attribute.
func (r *Repository) CreateAttributeValue(ctx context.Context, attributeID, value string) (catalog.AttributeValue, error) {
	if _, err := r.Attribute(ctx, attributeID); err != nil {
		return catalog.AttributeValue{}, err
	}

	value = strings.TrimSpace(value)
	s, err := r.slugs.EnsureUniqueWithin(ctx, store.AttributeValues, value, store.Filter{"attribute_id": attributeID})
	if err != nil {
		return catalog.AttributeValue{}, err
	}

	rec, err := r.store.Insert(ctx, store.AttributeValues, store.Record{
		"attribute_id": attributeID,
		"value":        value,
		"slug":         s,
	})
	if err != nil {
		return catalog.AttributeValue{}, fmt.Errorf("insert attribute value: %w", err)
	}
	return valueFromRecord(rec), nil
}

// EnsureAttributeValue returns the attribute's value named value, creating it if needed.
func (r *Repository) EnsureAttributeValue(ctx context.Context, attributeID, value string) (catalog.AttributeValue, error) {
	rec, err := r.store.Find(ctx, store.AttributeValues, store.Filter{
		"attribute_id": attributeID,
		"value":        strings.TrimSpace(value),
	})
	if err == nil {
		return valueFromRecord(rec), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return catalog.AttributeValue{}, fmt.Errorf("find attribute value: %w", err)
	}
	return r.CreateAttributeValue(ctx, attributeID, value)
}

// AttributeValue loads a value by id, checking it belongs to attributeID.
func (r *Repository) AttributeValue(ctx context.Context, attributeID, id string) (catalog.AttributeValue, error) {
	rec, err := r.store.Find(ctx, store.AttributeValues, store.Filter{"id": id, "attribute_id": attributeID})
	if errors.Is(err, store.ErrNotFound) {
		return catalog.AttributeValue{}, fmt.Errorf("%w: %s", ErrAttributeValueNotFound, id)
	}
	if err != nil {
		return catalog.AttributeValue{}, fmt.Errorf("find attribute value: %w", err)
	}
	return valueFromRecord(rec), nil
}

func attributeFromRecord(rec store.Record) catalog.Attribute {
	return catalog.Attribute{
		ID:   rec.ID(),
		Name: rec.String("name"),
		Slug: rec.String("slug"),
	}
}

func valueFromRecord(rec store.Record) catalog.AttributeValue {
	return catalog.AttributeValue{
		ID:          rec.ID(),
		AttributeID: rec.String("attribute_id"),
		Value:       rec.String("value"),
		Slug:        rec.String("slug"),
	}
}
