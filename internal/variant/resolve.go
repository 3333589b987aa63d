// Package variant resolves attribute selections against a product's variants.
//
// Everything here is a pure function of its inputs: no I/O, no mutation of the
// variants passed in. Functions are safe to call concurrently from any number
// of request handlers sharing the same product.
package variant

import (
	"sort"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// Options maps an attribute name to the value names still choosable for it,
// sorted and de-duplicated.
type Options map[string][]string

// Contains reports whether value is choosable for attribute.
func (o Options) Contains(attribute, value string) bool {
	for _, v := range o[attribute] {
		if v == value {
			return true
		}
	}
	return false
}

// Matches reports whether v carries every non-empty (attribute, value) pair in
// sel. Empty values are don't-care, so an empty selection matches everything.
func Matches(v catalog.Variant, sel catalog.Selection) bool {
	for name, value := range sel {
		if value == "" {
			continue
		}
		if !v.Has(name, value) {
			return false
		}
	}
	return true
}

// AvailableValues unions the attribute pairs of every variant matching sel.
//
// Adding a non-empty constraint to sel can only shrink the result: the set of
// matching variants narrows and the union is taken over that set.
func AvailableValues(variants []catalog.Variant, sel catalog.Selection) Options {
	seen := make(map[string]map[string]struct{})
	for _, v := range variants {
		if !Matches(v, sel) {
			continue
		}
		for _, a := range v.Attributes {
			values, ok := seen[a.AttributeName]
			if !ok {
				values = make(map[string]struct{})
				seen[a.AttributeName] = values
			}
			values[a.ValueName] = struct{}{}
		}
	}

	opts := make(Options, len(seen))
	for name, values := range seen {
		list := make([]string, 0, len(values))
		for value := range values {
			list = append(list, value)
		}
		sort.Strings(list)
		opts[name] = list
	}
	return opts
}

// Resolve returns the first variant, in input order, matching sel. With an
// incomplete selection the first structural match wins; callers needing a
// complete selection check it themselves. ok=false means no variant is selected.
func Resolve(variants []catalog.Variant, sel catalog.Selection) (catalog.Variant, bool) {
	for _, v := range variants {
		if Matches(v, sel) {
			return v, true
		}
	}
	return catalog.Variant{}, false
}

// ResolveOrDefault behaves like Resolve but falls back to the first variant
// when nothing matches. The admin editor uses it so a form is always populated.
func ResolveOrDefault(variants []catalog.Variant, sel catalog.Selection) (catalog.Variant, bool) {
	if v, ok := Resolve(variants, sel); ok {
		return v, true
	}
	if len(variants) == 0 {
		return catalog.Variant{}, false
	}
	return variants[0], true
}

// Facets returns the attribute names used across variants in first-seen order.
func Facets(variants []catalog.Variant) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, v := range variants {
		for _, a := range v.Attributes {
			if _, ok := seen[a.AttributeName]; ok {
				continue
			}
			seen[a.AttributeName] = struct{}{}
			names = append(names, a.AttributeName)
		}
	}
	return names
}
