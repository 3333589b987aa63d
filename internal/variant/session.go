package variant

import (
	"github.com/JonMunkholm/catalog/internal/catalog"
)

// State is the progress of a product-detail selection.
type State int

const (
	Unselected State = iota
	PartiallySelected
	FullySelected
	Unresolvable
)

func (s State) String() string {
	switch s {
	case Unselected:
		return "unselected"
	case PartiallySelected:
		return "partially_selected"
	case FullySelected:
		return "fully_selected"
	case Unresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

// MarshalText lets State render as its name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session tracks one shopper's selection on one product. It is not safe for
// concurrent use; each request or screen owns its own Session.
type Session struct {
	variants []catalog.Variant
	facets   []string
	sel      catalog.Selection
}

// NewSession starts an Unselected session over variants.
func NewSession(variants []catalog.Variant) *Session {
	return &Session{
		variants: variants,
		facets:   Facets(variants),
		sel:      catalog.Selection{},
	}
}

// NewSessionFrom starts a session with an initial selection, e.g. from query
// parameters. Blank values are ignored.
func NewSessionFrom(variants []catalog.Variant, sel catalog.Selection) *Session {
	s := NewSession(variants)
	for name, value := range sel {
		s.Select(name, value)
	}
	return s
}

// Select sets attribute to value. An empty value clears the attribute.
func (s *Session) Select(attribute, value string) State {
	if value == "" {
		return s.Clear(attribute)
	}
	s.sel = s.sel.With(attribute, value)
	return s.State()
}

// Clear unsets attribute.
func (s *Session) Clear(attribute string) State {
	s.sel = s.sel.Without(attribute)
	return s.State()
}

// Reset returns to Unselected from any state.
func (s *Session) Reset() State {
	s.sel = catalog.Selection{}
	return Unselected
}

// Selection returns a copy of the current selection.
func (s *Session) Selection() catalog.Selection {
	return s.sel.Clone()
}

// State derives the session state from the current selection.
func (s *Session) State() State {
	if s.sel.IsEmpty() {
		return Unselected
	}
	if _, ok := Resolve(s.variants, s.sel); !ok {
		return Unresolvable
	}
	for _, facet := range s.facets {
		if s.sel[facet] == "" {
			return PartiallySelected
		}
	}
	return FullySelected
}

// Options returns the values still choosable under the current selection.
func (s *Session) Options() Options {
	return AvailableValues(s.variants, s.sel)
}

// Variant returns the variant matching the current selection, if any.
func (s *Session) Variant() (catalog.Variant, bool) {
	return Resolve(s.variants, s.sel)
}

// Facets returns the product's attribute names in first-seen order.
func (s *Session) Facets() []string {
	return s.facets
}
