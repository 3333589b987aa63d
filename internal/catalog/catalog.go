// Package catalog defines the product catalog model shared by the variant
// resolver, the import pipeline, the stores and the HTTP layer.
//
// A Product owns one or more Variants. Each Variant is tagged with at most one
// value per Attribute (Color=Red, Size=M). Attribute and value names are what
// storefront screens group by, so selections are keyed by name rather than id.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is applied to variants created without an explicit threshold.
const DefaultLowStockThreshold = 10

var (
	// ErrDuplicateAttribute is returned when a variant declares two values for one attribute.
	ErrDuplicateAttribute = errors.New("variant declares more than one value for the same attribute")

	// ErrDuplicateSKU is returned when two variants of one product share a SKU.
	ErrDuplicateSKU = errors.New("duplicate sku")

	// ErrProductNotFound is returned by readers when no product has the requested slug.
	ErrProductNotFound = errors.New("product not found")
)

// Attribute is a facet such as "Color".
type Attribute struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// AttributeValue is one allowed value of an attribute, e.g. "Red".
type AttributeValue struct {
	ID          string `json:"id"`
	AttributeID string `json:"attributeId"`
	Value       string `json:"value"`
	Slug        string `json:"slug"`
}

// AttributeSelection is one (attribute, value) pair carried by a variant, with
// the display names joined in.
type AttributeSelection struct {
	AttributeID   string `json:"attributeId"`
	AttributeName string `json:"attributeName"`
	ValueID       string `json:"valueId"`
	ValueName     string `json:"valueName"`
}

// key identifies the attribute a selection belongs to. IDs win; name-only
// selections (fixtures, joins without ids) fall back to the normalized name.
func (a AttributeSelection) key() string {
	if a.AttributeID != "" {
		return "id:" + a.AttributeID
	}
	return "name:" + NormalizeName(a.AttributeName)
}

// label is used in error messages.
func (a AttributeSelection) label() string {
	if a.AttributeName != "" {
		return a.AttributeName
	}
	return a.AttributeID
}

// Variant is one purchasable configuration of a product.
type Variant struct {
	ID                string               `json:"id"`
	ProductID         string               `json:"productId"`
	SKU               string               `json:"sku"`
	Price             decimal.Decimal      `json:"price"`
	Stock             int                  `json:"stock"`
	LowStockThreshold int                  `json:"lowStockThreshold"`
	Images            []string             `json:"images"`
	Attributes        []AttributeSelection `json:"attributes"`
}

// NewVariant validates v and returns it. Use it wherever variants enter the
// system (import, admin editor, store reads) so the one-value-per-attribute
// invariant holds for everything the resolver sees.
func NewVariant(v Variant) (Variant, error) {
	if err := v.Validate(); err != nil {
		return Variant{}, err
	}
	return v, nil
}

// Validate reports ErrDuplicateAttribute if the variant carries two values for
// the same attribute.
func (v Variant) Validate() error {
	seen := make(map[string]struct{}, len(v.Attributes))
	for _, a := range v.Attributes {
		k := a.key()
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateAttribute, a.label())
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Has reports whether the variant carries the exact (attribute, value) pair.
func (v Variant) Has(attribute, value string) bool {
	for _, a := range v.Attributes {
		if a.AttributeName == attribute && a.ValueName == value {
			return true
		}
	}
	return false
}

// ValueOf returns the value the variant carries for the named attribute.
func (v Variant) ValueOf(attribute string) (string, bool) {
	for _, a := range v.Attributes {
		if a.AttributeName == attribute {
			return a.ValueName, true
		}
	}
	return "", false
}

// LowStock reports whether stock has reached the variant's threshold.
func (v Variant) LowStock() bool {
	return v.Stock <= v.LowStockThreshold
}

// Product is a catalog entry with its variants. Slug is assigned once at
// creation and is never recomputed from Name.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	CategoryID   string    `json:"categoryId"`
	IsNew        bool      `json:"isNew"`
	IsFeatured   bool      `json:"isFeatured"`
	IsTrending   bool      `json:"isTrending"`
	IsBestSeller bool      `json:"isBestSeller"`
	Variants     []Variant `json:"variants"`
}

// Validate checks every variant and SKU uniqueness within the product.
// Cross-product SKU uniqueness is enforced by the store.
func (p Product) Validate() error {
	skus := make(map[string]struct{}, len(p.Variants))
	for _, v := range p.Variants {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("variant %s: %w", v.SKU, err)
		}
		if v.SKU == "" {
			continue
		}
		if _, dup := skus[v.SKU]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, v.SKU)
		}
		skus[v.SKU] = struct{}{}
	}
	return nil
}

// DefaultVariant returns the first variant, which screens show before any
// selection is made.
func (p Product) DefaultVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	return p.Variants[0], true
}

// NormalizeName is the case-insensitive key used for attribute name uniqueness.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
