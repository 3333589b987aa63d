// Package slug turns display names into URL-safe identifiers that are unique
// within a store collection.
package slug

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/catalog/internal/store"
)

// SuffixLength is the number of random characters appended on collision.
const SuffixLength = 4

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name, folds accents, collapses every run of characters
// outside [a-z0-9] into one hyphen and strips edge hyphens. The result may be
// empty for punctuation-only or non-Latin names.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		folded = strings.ToLower(strings.TrimSpace(name))
	}
	return strings.Trim(nonAlnum.ReplaceAllString(folded, "-"), "-")
}

// Finder is the read side of store.Store the generator needs.
type Finder interface {
	Find(ctx context.Context, collection string, where store.Filter) (store.Record, error)
}

// Generator produces unique slugs by probing a collection's slug column. It
// only reads; callers persist the slug with their own insert.
type Generator struct {
	finder      Finder
	now         func() time.Time
	maxAttempts int

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the clock used for the empty-name fallback.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand sets the random source for collision suffixes.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rnd = r }
}

// WithMaxAttempts bounds how many candidates are probed. With 1 (the default)
// a colliding slug gets one suffix that is returned without a second probe,
// accepting a 1 in 36^4 chance of a repeat collision. Higher values re-probe
// each suffixed candidate.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewGenerator returns a Generator reading from finder.
func NewGenerator(finder Finder, opts ...Option) *Generator {
	g := &Generator{
		finder:      finder,
		now:         time.Now,
		maxAttempts: 1,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Bind returns a generator with the same settings that probes finder instead,
// typically a store bound to a transaction.
func (g *Generator) Bind(finder Finder) *Generator {
	return &Generator{
		finder:      finder,
		now:         g.now,
		maxAttempts: g.maxAttempts,
		rnd:         rand.New(rand.NewSource(g.seed())),
	}
}

func (g *Generator) seed() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Int63()
}

// EnsureUnique returns a slug for name that no record in collection carries.
// Store read errors are returned wrapped; absence of a match is not an error.
func (g *Generator) EnsureUnique(ctx context.Context, collection, name string) (string, error) {
	return g.EnsureUniqueWithin(ctx, collection, name, nil)
}

// EnsureUniqueWithin is EnsureUnique with the probe narrowed by scope, for
// slugs unique per parent (attribute values per attribute).
func (g *Generator) EnsureUniqueWithin(ctx context.Context, collection, name string, scope store.Filter) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = fmt.Sprintf("%s-%d", collection, g.now().UnixMilli())
	}

	taken, err := g.exists(ctx, collection, base, scope)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	candidate := base + "-" + g.suffix()
	for attempt := 1; attempt < g.maxAttempts; attempt++ {
		taken, err := g.exists(ctx, collection, candidate, scope)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + g.suffix()
	}
	return candidate, nil
}

func (g *Generator) exists(ctx context.Context, collection, slug string, scope store.Filter) (bool, error) {
	where := store.Filter{"slug": slug}
	for k, v := range scope {
		where[k] = v
	}

	_, err := g.finder.Find(ctx, collection, where)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("check %s slug %q: %w", collection, slug, err)
}

func (g *Generator) suffix() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, SuffixLength)
	for i := range b {
		b[i] = suffixAlphabet[g.rnd.Intn(len(suffixAlphabet))]
	}
	return string(b)
}
