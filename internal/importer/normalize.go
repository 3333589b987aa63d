package importer

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// Column names recognized in import files.
const (
	ColName              = "name"
	ColPrice             = "price"
	ColStock             = "stock"
	ColCategoryID        = "categoryId"
	ColDescription       = "description"
	ColSKU               = "sku"
	ColImages            = "images"
	ColIsNew             = "isNew"
	ColIsFeatured        = "isFeatured"
	ColIsTrending        = "isTrending"
	ColIsBestSeller      = "isBestSeller"
	ColLowStockThreshold = "lowStockThreshold"
	ColAttributes        = "attributes"
)

// RequiredColumns must be present and non-blank on every row.
var RequiredColumns = []string{ColName, ColPrice, ColCategoryID}

// ReasonMissingRequired is the ValidationFailure reason for absent or blank
// required cells.
const ReasonMissingRequired = "missing required field"

// Kind tells which side of a Result is set.
type Kind int

const (
	KindCandidate Kind = iota
	KindInvalid
)

// Candidate is a row that passed validation, with every field coerced.
type Candidate struct {
	Line              int
	Name              string
	Description       string
	CategoryID        string
	SKU               string
	SKUGenerated      bool
	Price             decimal.Decimal
	Stock             int
	LowStockThreshold int
	IsNew             bool
	IsFeatured        bool
	IsTrending        bool
	IsBestSeller      bool
	Images            []string
	Attributes        []catalog.AttributeSelection
}

// Product returns the product half of the candidate. The slug is left empty.
func (c *Candidate) Product() catalog.Product {
	return catalog.Product{
		Name:         c.Name,
		Description:  c.Description,
		CategoryID:   c.CategoryID,
		IsNew:        c.IsNew,
		IsFeatured:   c.IsFeatured,
		IsTrending:   c.IsTrending,
		IsBestSeller: c.IsBestSeller,
	}
}

// Variant returns the default variant for productID.
func (c *Candidate) Variant(productID string) catalog.Variant {
	return catalog.Variant{
		ProductID:         productID,
		SKU:               c.SKU,
		Price:             c.Price,
		Stock:             c.Stock,
		LowStockThreshold: c.LowStockThreshold,
		Images:            c.Images,
		Attributes:        c.Attributes,
	}
}

// ValidationFailure describes a row rejected before any write.
type ValidationFailure struct {
	Line   int
	Reason string
	Fields []string
	Err    error
}

func (f *ValidationFailure) Unwrap() error { return f.Err }

func (f *ValidationFailure) Error() string {
	if len(f.Fields) == 0 {
		return fmt.Sprintf("line %d: %s", f.Line, f.Reason)
	}
	return fmt.Sprintf("line %d: %s: %s", f.Line, f.Reason, strings.Join(f.Fields, ", "))
}

// Result holds exactly one of Candidate or Failure.
type Result struct {
	Candidate *Candidate
	Failure   *ValidationFailure
}

// Kind reports which field is set.
func (r Result) Kind() Kind {
	if r.Failure != nil {
		return KindInvalid
	}
	return KindCandidate
}

// NormalizeOptions injects the clock and random source used for generated
// SKUs. Zero values use the wall clock and math/rand.
type NormalizeOptions struct {
	Now  func() time.Time
	Rand func(n int) int
}

func (o NormalizeOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o NormalizeOptions) intn(n int) int {
	if o.Rand != nil {
		return o.Rand(n)
	}
	return rand.Intn(n)
}

// Normalize validates row and coerces its cells. It never touches the store.
//
// Unparseable numbers fall back to zero rather than failing the row; flags
// are true only for the literal "true".
func Normalize(row Row, opts NormalizeOptions) Result {
	var missing []string
	for _, col := range RequiredColumns {
		if v, ok := row.Get(col); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Result{Failure: &ValidationFailure{Line: row.Line, Reason: ReasonMissingRequired, Fields: missing}}
	}

	attrs, err := parseAttributes(cell(row, ColAttributes))
	if err != nil {
		return Result{Failure: &ValidationFailure{Line: row.Line, Reason: err.Error(), Fields: []string{ColAttributes}, Err: err}}
	}

	c := &Candidate{
		Line:              row.Line,
		Name:              cell(row, ColName),
		Description:       cell(row, ColDescription),
		CategoryID:        cell(row, ColCategoryID),
		SKU:               cell(row, ColSKU),
		Price:             parsePrice(cell(row, ColPrice)),
		Stock:             parseInt(cell(row, ColStock)),
		LowStockThreshold: catalog.DefaultLowStockThreshold,
		IsNew:             parseFlag(cell(row, ColIsNew)),
		IsFeatured:        parseFlag(cell(row, ColIsFeatured)),
		IsTrending:        parseFlag(cell(row, ColIsTrending)),
		IsBestSeller:      parseFlag(cell(row, ColIsBestSeller)),
		Images:            parseImages(cell(row, ColImages)),
		Attributes:        attrs,
	}
	if v, ok := row.Get(ColLowStockThreshold); ok && strings.TrimSpace(v) != "" {
		c.LowStockThreshold = parseInt(v)
	}
	if c.SKU == "" {
		c.SKU = fmt.Sprintf("SKU-%d-%d", opts.now().UnixMilli(), opts.intn(1000))
		c.SKUGenerated = true
	}
	return Result{Candidate: c}
}

func cell(row Row, name string) string {
	v, _ := row.Get(name)
	return strings.TrimSpace(v)
}

// parsePrice reads a leading decimal number. Anything unparseable is zero.
func parsePrice(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return decimal.NewFromFloat(f)
	}
	if lead := leadingNumber(s, true); lead != "" {
		if d, err := decimal.NewFromString(lead); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// parseInt reads a leading integer, truncating decimals. Anything unparseable is zero.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if n, err := strconv.Atoi(leadingNumber(s, false)); err == nil {
		return n
	}
	return 0
}

// leadingNumber returns the longest numeric prefix of s ("12abc" gives "12").
func leadingNumber(s string, allowFraction bool) string {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits, dot := 0, false
scan:
	for ; end < len(s); end++ {
		switch ch := s[end]; {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == '.' && allowFraction && !dot:
			dot = true
		default:
			break scan
		}
	}
	if digits == 0 {
		return ""
	}
	return strings.TrimSuffix(s[:end], ".")
}

func parseFlag(s string) bool {
	return s == "true"
}

func parseImages(s string) []string {
	images := []string{}
	if s == "" {
		return images
	}
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			images = append(images, part)
		}
	}
	return images
}

// parseAttributes reads "Color=Red;Size=M". Attribute names must be distinct
// case-insensitively.
func parseAttributes(s string) ([]catalog.AttributeSelection, error) {
	if s == "" {
		return nil, nil
	}

	var attrs []catalog.AttributeSelection
	for _, pair := range strings.Split(s, ";") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("invalid attribute pair %q", strings.TrimSpace(pair))
		}
		attrs = append(attrs, catalog.AttributeSelection{AttributeName: name, ValueName: value})
	}

	v := catalog.Variant{Attributes: attrs}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return attrs, nil
}
