package repository

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/store"
)

// CreateVariant validates v, resolves its attribute pairs and writes the
// variant plus one link row per pair.
//
// Pairs given by name are found or created; pairs given by id must exist.
// The one-value-per-attribute rule is checked before and after resolution so
// "Color" and "color" collide even when only names were supplied.
func (r *Repository) CreateVariant(ctx context.Context, v catalog.Variant) (catalog.Variant, error) {
	if err := v.Validate(); err != nil {
		return catalog.Variant{}, err
	}

	resolved := make([]catalog.AttributeSelection, 0, len(v.Attributes))
	for _, sel := range v.Attributes {
		rs, err := r.resolveSelection(ctx, sel)
		if err != nil {
			return catalog.Variant{}, err
		}
		resolved = append(resolved, rs)
	}
	v.Attributes = resolved

	v, err := catalog.NewVariant(v)
	if err != nil {
		return catalog.Variant{}, err
	}
	if v.LowStockThreshold == 0 {
		v.LowStockThreshold = catalog.DefaultLowStockThreshold
	}
	images := v.Images
	if images == nil {
		images = []string{}
	}

	rec, err := r.store.Insert(ctx, store.ProductVariants, store.Record{
		"product_id":          v.ProductID,
		"sku":                 v.SKU,
		"price":               v.Price,
		"stock":               v.Stock,
		"low_stock_threshold": v.LowStockThreshold,
		"images":              images,
	})
	if err != nil {
		return catalog.Variant{}, fmt.Errorf("insert variant: %w", err)
	}
	v.ID = rec.ID()

	for _, sel := range v.Attributes {
		if _, err := r.store.Insert(ctx, store.ProductVariantAttributes, store.Record{
			"variant_id":   v.ID,
			"attribute_id": sel.AttributeID,
			"value_id":     sel.ValueID,
		}); err != nil {
			return catalog.Variant{}, fmt.Errorf("link variant attribute %s: %w", sel.AttributeName, err)
		}
	}
	return v, nil
}

func (r *Repository) resolveSelection(ctx context.Context, sel catalog.AttributeSelection) (catalog.AttributeSelection, error) {
	var (
		attr catalog.Attribute
		err  error
	)
	if sel.AttributeID != "" {
		attr, err = r.Attribute(ctx, sel.AttributeID)
	} else {
		attr, err = r.EnsureAttribute(ctx, sel.AttributeName)
	}
	if err != nil {
		return catalog.AttributeSelection{}, err
	}

	var val catalog.AttributeValue
	if sel.ValueID != "" {
		val, err = r.AttributeValue(ctx, attr.ID, sel.ValueID)
	} else {
		val, err = r.EnsureAttributeValue(ctx, attr.ID, sel.ValueName)
	}
	if err != nil {
		return catalog.AttributeSelection{}, err
	}

	return catalog.AttributeSelection{
		AttributeID:   attr.ID,
		AttributeName: attr.Name,
		ValueID:       val.ID,
		ValueName:     val.Value,
	}, nil
}

// variantsOf loads a product's variants in creation order with names joined in.
func (r *Repository) variantsOf(ctx context.Context, productID string) ([]catalog.Variant, error) {
	recs, err := r.store.List(ctx, store.ProductVariants, store.Filter{"product_id": productID})
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}

	attrs := make(map[string]catalog.Attribute)
	values := make(map[string]catalog.AttributeValue)

	variants := make([]catalog.Variant, 0, len(recs))
	for _, rec := range recs {
		v := catalog.Variant{
			ID:                rec.ID(),
			ProductID:         rec.String("product_id"),
			SKU:               rec.String("sku"),
			Price:             rec.Decimal("price"),
			Stock:             rec.Int("stock"),
			LowStockThreshold: rec.Int("low_stock_threshold"),
			Images:            rec.Strings("images"),
		}
		if v.Images == nil {
			v.Images = []string{}
		}

		links, err := r.store.List(ctx, store.ProductVariantAttributes, store.Filter{"variant_id": v.ID})
		if err != nil {
			return nil, fmt.Errorf("list variant attributes: %w", err)
		}
		for _, link := range links {
			attrID, valueID := link.String("attribute_id"), link.String("value_id")

			attr, ok := attrs[attrID]
			if !ok {
				if attr, err = r.Attribute(ctx, attrID); err != nil {
					return nil, err
				}
				attrs[attrID] = attr
			}
			val, ok := values[valueID]
			if !ok {
				if val, err = r.AttributeValue(ctx, attrID, valueID); err != nil {
					return nil, err
				}
				values[valueID] = val
			}

			v.Attributes = append(v.Attributes, catalog.AttributeSelection{
				AttributeID:   attr.ID,
				AttributeName: attr.Name,
				ValueID:       val.ID,
				ValueName:     val.Value,
			})
		}

		v, err = catalog.NewVariant(v)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", rec.String("sku"), err)
		}
		variants = append(variants, v)
	}
	return variants, nil
}
