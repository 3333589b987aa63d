package variant

import (
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// tee builds a variant carrying the given Color and Size. Blank values are omitted.
func tee(sku, color, size string) catalog.Variant {
	v := catalog.Variant{SKU: sku}
	if color != "" {
		v.Attributes = append(v.Attributes, catalog.AttributeSelection{AttributeID: "color", AttributeName: "Color", ValueName: color})
	}
	if size != "" {
		v.Attributes = append(v.Attributes, catalog.AttributeSelection{AttributeID: "size", AttributeName: "Size", ValueName: size})
	}
	return v
}

func teeVariants() []catalog.Variant {
	return []catalog.Variant{
		tee("RED-S", "Red", "S"),
		tee("RED-M", "Red", "M"),
		tee("BLUE-M", "Blue", "M"),
		tee("BLUE-L", "Blue", "L"),
		tee("GREEN-L", "Green", "L"),
	}
}

// ============================================================================
// AvailableValues Tests
// ============================================================================

func TestAvailableValues(t *testing.T) {
	variants := teeVariants()

	tests := []struct {
		name string
		sel  catalog.Selection
		want Options
	}{
		{
			name: "empty selection offers everything",
			sel:  catalog.Selection{},
			want: Options{"Color": {"Blue", "Green", "Red"}, "Size": {"L", "M", "S"}},
		},
		{
			name: "blank values are unset",
			sel:  catalog.Selection{"Color": "", "Size": ""},
			want: Options{"Color": {"Blue", "Green", "Red"}, "Size": {"L", "M", "S"}},
		},
		{
			name: "color narrows sizes",
			sel:  catalog.Selection{"Color": "Red"},
			want: Options{"Color": {"Red"}, "Size": {"M", "S"}},
		},
		{
			name: "size narrows colors",
			sel:  catalog.Selection{"Size": "M"},
			want: Options{"Color": {"Blue", "Red"}, "Size": {"M"}},
		},
		{
			name: "full selection",
			sel:  catalog.Selection{"Color": "Blue", "Size": "L"},
			want: Options{"Color": {"Blue"}, "Size": {"L"}},
		},
		{
			name: "impossible selection",
			sel:  catalog.Selection{"Color": "Green", "Size": "S"},
			want: Options{},
		},
		{
			name: "unknown attribute excludes everything",
			sel:  catalog.Selection{"Material": "Cotton"},
			want: Options{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailableValues(variants, tt.sel)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AvailableValues() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailableValues_NoVariants(t *testing.T) {
	got := AvailableValues(nil, catalog.Selection{"Color": "Red"})
	if len(got) != 0 {
		t.Errorf("AvailableValues(nil) = %v, want empty", got)
	}
}

func TestAvailableValues_DoesNotMutateInput(t *testing.T) {
	variants := teeVariants()
	before := teeVariants()
	sel := catalog.Selection{"Color": "Red"}

	AvailableValues(variants, sel)
	Resolve(variants, sel)

	if !reflect.DeepEqual(variants, before) {
		t.Error("variants were modified")
	}
	if !reflect.DeepEqual(sel, catalog.Selection{"Color": "Red"}) {
		t.Error("selection was modified")
	}
}

// randomCatalog builds a deterministic pseudo-random variant set where some
// variants omit some attributes.
func randomCatalog(r *rand.Rand) []catalog.Variant {
	attrs := map[string][]string{
		"Color":    {"Red", "Blue", "Green", "Black"},
		"Size":     {"S", "M", "L", "XL"},
		"Material": {"Cotton", "Wool"},
	}
	names := []string{"Color", "Size", "Material"}

	n := 1 + r.Intn(12)
	variants := make([]catalog.Variant, 0, n)
	for i := 0; i < n; i++ {
		var v catalog.Variant
		for _, name := range names {
			if r.Intn(4) == 0 {
				continue
			}
			values := attrs[name]
			v.Attributes = append(v.Attributes, catalog.AttributeSelection{
				AttributeName: name,
				ValueName:     values[r.Intn(len(values))],
			})
		}
		variants = append(variants, v)
	}
	return variants
}

func isSubset(sub, super Options) bool {
	for name, values := range sub {
		for _, v := range values {
			if !super.Contains(name, v) {
				return false
			}
		}
	}
	return true
}

func TestAvailableValues_MonotonicNarrowing(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	choices := []struct{ name, value string }{
		{"Color", "Red"}, {"Color", "Blue"}, {"Size", "M"}, {"Size", "XL"},
		{"Material", "Wool"}, {"Material", "Cotton"},
	}

	for i := 0; i < 500; i++ {
		variants := randomCatalog(r)
		sel := catalog.Selection{}
		prev := AvailableValues(variants, sel)

		for step := 0; step < 3; step++ {
			c := choices[r.Intn(len(choices))]
			if sel[c.name] != "" {
				continue
			}
			sel = sel.With(c.name, c.value)
			next := AvailableValues(variants, sel)
			if !isSubset(next, prev) {
				t.Fatalf("iteration %d: options grew after adding %s=%s\nbefore: %v\nafter:  %v",
					i, c.name, c.value, prev, next)
			}
			prev = next
		}
	}
}

// ============================================================================
// Resolve Tests
// ============================================================================

func TestResolve(t *testing.T) {
	variants := teeVariants()

	tests := []struct {
		name    string
		sel     catalog.Selection
		wantSKU string
		wantOK  bool
	}{
		{"empty selection returns first", catalog.Selection{}, "RED-S", true},
		{"nil selection returns first", nil, "RED-S", true},
		{"blank values are don't-care", catalog.Selection{"Color": "", "Size": "M"}, "RED-M", true},
		{"partial selection returns first match", catalog.Selection{"Color": "Blue"}, "BLUE-M", true},
		{"full selection", catalog.Selection{"Color": "Blue", "Size": "L"}, "BLUE-L", true},
		{"no match", catalog.Selection{"Color": "Green", "Size": "S"}, "", false},
		{"value case must match exactly", catalog.Selection{"Color": "red"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(variants, tt.sel)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if got.SKU != tt.wantSKU {
				t.Errorf("Resolve() sku = %q, want %q", got.SKU, tt.wantSKU)
			}
		})
	}
}

func TestResolve_VacuousSelectionMatchesFirst(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		variants := randomCatalog(r)
		got, ok := Resolve(variants, catalog.Selection{})
		if !ok || !reflect.DeepEqual(got, variants[0]) {
			t.Fatalf("iteration %d: Resolve(V, {}) did not return V[0]", i)
		}
	}
}

func TestResolve_EmptyVariants(t *testing.T) {
	if _, ok := Resolve(nil, catalog.Selection{}); ok {
		t.Error("Resolve(nil) ok = true, want false")
	}
}

func TestResolveOrDefault(t *testing.T) {
	variants := teeVariants()

	got, ok := ResolveOrDefault(variants, catalog.Selection{"Color": "Purple"})
	if !ok || got.SKU != "RED-S" {
		t.Errorf("ResolveOrDefault() miss = %q, %v; want RED-S, true", got.SKU, ok)
	}

	got, ok = ResolveOrDefault(variants, catalog.Selection{"Size": "L"})
	if !ok || got.SKU != "BLUE-L" {
		t.Errorf("ResolveOrDefault() hit = %q, %v; want BLUE-L, true", got.SKU, ok)
	}

	if _, ok := ResolveOrDefault(nil, nil); ok {
		t.Error("ResolveOrDefault(nil) ok = true, want false")
	}
}

func TestIdempotence(t *testing.T) {
	variants := teeVariants()
	sel := catalog.Selection{"Size": "M"}

	first := AvailableValues(variants, sel)
	second := AvailableValues(variants, sel)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("AvailableValues not idempotent: %v vs %v", first, second)
	}

	v1, ok1 := Resolve(variants, sel)
	v2, ok2 := Resolve(variants, sel)
	if ok1 != ok2 || !reflect.DeepEqual(v1, v2) {
		t.Errorf("Resolve not idempotent: %v/%v vs %v/%v", v1.SKU, ok1, v2.SKU, ok2)
	}
}

func TestConcurrentUse(t *testing.T) {
	variants := teeVariants()
	want := AvailableValues(variants, catalog.Selection{"Color": "Blue"})

	var wg sync.WaitGroup
	errs := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := AvailableValues(variants, catalog.Selection{"Color": "Blue"})
			if !reflect.DeepEqual(got, want) {
				errs <- "AvailableValues diverged"
			}
			if v, ok := Resolve(variants, catalog.Selection{"Color": "Blue", "Size": "L"}); !ok || v.SKU != "BLUE-L" {
				errs <- "Resolve diverged"
			}
		}()
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}

func TestFacets(t *testing.T) {
	variants := []catalog.Variant{
		tee("A", "", "S"),
		tee("B", "Red", "M"),
	}
	if got, want := Facets(variants), []string{"Size", "Color"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Facets() = %v, want %v", got, want)
	}
}
