// Package importer ingests delimited product files into the catalog.
//
// Each data row becomes one Product plus its default Variant. Rows are
// processed strictly in file order and independently: a row that fails
// validation or persistence is recorded in the Outcome and the run moves on.
//
// Pipeline per row:
//
//	Normalize -> slug.EnsureUnique -> CreateProduct -> CreateVariant
//
// When the store supports transactions the two writes share one, so a failed
// variant leaves no product behind. Otherwise the product is deleted again;
// if that delete also fails the orphan is logged and named in the row reason.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/repository"
	"github.com/JonMunkholm/catalog/internal/store"
)

var (
	// ErrEmptyInput is returned when the source has no header line.
	ErrEmptyInput = errors.New("empty file")

	// ErrUnsupportedFormat is returned by ImportFile for unknown extensions.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// FailureKind classifies a RowFailure.
type FailureKind string

const (
	FailureValidation  FailureKind = "validation"
	FailurePersistence FailureKind = "persistence"
	FailureStoreRead   FailureKind = "store_read"
)

// RowFailure is one row that did not become a product.
type RowFailure struct {
	Line   int         `json:"line"`
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
	Fields []string    `json:"fields,omitempty"`
	Code   string      `json:"code"`
}

// ImportedProduct identifies a product created by a run.
type ImportedProduct struct {
	Line int    `json:"line"`
	ID   string `json:"id"`
	Slug string `json:"slug"`
	SKU  string `json:"sku"`
}

// Outcome summarizes a run. SuccessCount+FailureCount equals the number of
// rows processed; on cancellation that can be fewer than the rows given.
type Outcome struct {
	RunID        string            `json:"runId"`
	SuccessCount int               `json:"successCount"`
	FailureCount int               `json:"failureCount"`
	Failures     []RowFailure      `json:"failures"`
	Products     []ImportedProduct `json:"products"`
	Cancelled    bool              `json:"cancelled"`
	Duration     time.Duration     `json:"duration"`
}

// Summary is the one-line result shown to the person who uploaded the file.
func (o Outcome) Summary() string {
	return fmt.Sprintf("Imported %d products successfully. %d failed.", o.SuccessCount, o.FailureCount)
}

// Hook runs after every run, including cancelled ones.
type Hook func(ctx context.Context, o Outcome)

// Importer runs imports against one repository.
type Importer struct {
	repo      *repository.Repository
	limiter   *Limiter
	parse     ParseOptions
	normalize NormalizeOptions
	timeout   time.Duration

	mu    sync.RWMutex
	hooks []Hook
}

// Option configures an Importer.
type Option func(*Importer)

// WithLimiter bounds concurrent runs.
func WithLimiter(l *Limiter) Option {
	return func(i *Importer) { i.limiter = l }
}

// WithParseOptions selects the CSV tokenizer for Import and ImportFile.
func WithParseOptions(p ParseOptions) Option {
	return func(i *Importer) { i.parse = p }
}

// WithNormalizeOptions sets the clock and random source for generated SKUs.
func WithNormalizeOptions(n NormalizeOptions) Option {
	return func(i *Importer) { i.normalize = n }
}

// WithTimeout caps a whole run. Rows not reached in time are not processed.
func WithTimeout(d time.Duration) Option {
	return func(i *Importer) { i.timeout = d }
}

// New returns an Importer writing through repo.
func New(repo *repository.Repository, opts ...Option) *Importer {
	i := &Importer{repo: repo}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// OnComplete registers a hook run after each import.
func (i *Importer) OnComplete(h Hook) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hooks = append(i.hooks, h)
}

// Limiter returns the run limiter, or nil.
func (i *Importer) Limiter() *Limiter {
	return i.limiter
}

// Import parses raw delimited text and imports its rows.
func (i *Importer) Import(ctx context.Context, raw string) (Outcome, error) {
	if strings.TrimSpace(decode([]byte(raw))) == "" {
		return Outcome{}, ErrEmptyInput
	}
	rows, err := ParseWith(raw, i.parse)
	if err != nil {
		return Outcome{}, err
	}
	return i.ImportRows(ctx, rows)
}

// ImportFile dispatches on the file extension: .csv and .txt go through
// Import, .xlsx through ParseXLSX. limit caps the bytes read.
func (i *Importer) ImportFile(ctx context.Context, name string, r io.Reader, limit int64) (Outcome, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		raw, err := ReadSource(r, limit)
		if err != nil {
			return Outcome{}, err
		}
		return i.Import(ctx, raw)

	case ".xlsx":
		if limit > 0 {
			r = io.LimitReader(r, limit)
		}
		rows, err := ParseXLSX(r)
		if err != nil {
			return Outcome{}, err
		}
		if len(rows) == 0 {
			return Outcome{}, ErrEmptyInput
		}
		return i.ImportRows(ctx, rows)

	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ImportRows imports already-parsed rows in order. It returns the partial
// Outcome together with ctx.Err() when cancelled between rows.
func (i *Importer) ImportRows(ctx context.Context, rows []Row) (Outcome, error) {
	if i.limiter != nil {
		if err := i.limiter.Acquire(ctx); err != nil {
			return Outcome{}, err
		}
		defer i.limiter.Release()
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	out := Outcome{
		RunID:    uuid.NewString(),
		Failures: []RowFailure{},
		Products: []ImportedProduct{},
	}
	ctx = logging.WithRunID(ctx, out.RunID)
	log := logging.FromContext(ctx)
	log.Info("import started", "rows", len(rows))

	var runErr error
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			out.Cancelled = true
			runErr = err
			log.Warn("import stopped", "error", err, "line", row.Line)
			break
		}

		imported, failure := i.importRow(ctx, row, log)
		if failure != nil {
			out.FailureCount++
			out.Failures = append(out.Failures, *failure)
			continue
		}
		out.SuccessCount++
		out.Products = append(out.Products, imported)
	}
	out.Duration = time.Since(start)

	log.Info("import completed",
		"succeeded", out.SuccessCount,
		"failed", out.FailureCount,
		"cancelled", out.Cancelled,
		"duration", out.Duration,
	)
	i.notify(context.WithoutCancel(ctx), out)
	return out, runErr
}

func (i *Importer) notify(ctx context.Context, out Outcome) {
	i.mu.RLock()
	hooks := append([]Hook(nil), i.hooks...)
	i.mu.RUnlock()

	for _, h := range hooks {
		h(ctx, out)
	}
}

// errVariant marks a failure after the product write succeeded.
type errVariant struct {
	productID string
	err       error
}

func (e *errVariant) Error() string { return "create variant: " + e.err.Error() }
func (e *errVariant) Unwrap() error { return e.err }

func (i *Importer) importRow(ctx context.Context, row Row, log *slog.Logger) (ImportedProduct, *RowFailure) {
	res := Normalize(row, i.normalize)
	if res.Kind() == KindInvalid {
		f := res.Failure
		log.Debug("row rejected", "line", row.Line, "reason", f.Reason, "fields", f.Fields)
		return ImportedProduct{}, &RowFailure{
			Line:   row.Line,
			Kind:   FailureValidation,
			Reason: f.Reason,
			Fields: f.Fields,
			Code:   MapError(f).Code,
		}
	}
	c := res.Candidate

	slug, err := i.repo.Slugs().EnsureUnique(ctx, store.Products, c.Name)
	if err != nil {
		log.Error("slug lookup failed", "line", row.Line, "error", err)
		return ImportedProduct{}, rowFailure(row.Line, FailureStoreRead, err)
	}

	p := c.Product()
	p.Slug = slug

	var created catalog.Product
	write := func(r *repository.Repository) error {
		prod, err := r.CreateProduct(ctx, p)
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		created = prod
		if _, err := r.CreateVariant(ctx, c.Variant(prod.ID)); err != nil {
			return &errVariant{productID: prod.ID, err: err}
		}
		return nil
	}

	if tx, ok := i.repo.Store().(store.Transactor); ok {
		err = tx.WithinTx(ctx, func(s store.Store) error {
			return write(i.repo.Bind(s))
		})
	} else {
		err = write(i.repo)
		var ve *errVariant
		if errors.As(err, &ve) {
			err = i.compensate(ctx, ve, log)
		}
	}
	if err != nil {
		log.Warn("row failed", "line", row.Line, "error", err)
		kind := FailurePersistence
		if errors.Is(err, catalog.ErrDuplicateAttribute) {
			kind = FailureValidation
		}
		return ImportedProduct{}, rowFailure(row.Line, kind, err)
	}

	return ImportedProduct{Line: row.Line, ID: created.ID, Slug: created.Slug, SKU: c.SKU}, nil
}

// compensate deletes the product left behind by a failed variant write.
func (i *Importer) compensate(ctx context.Context, ve *errVariant, log *slog.Logger) error {
	if err := i.repo.DeleteProduct(context.WithoutCancel(ctx), ve.productID); err != nil {
		log.Error("compensating delete failed, product orphaned",
			"product_id", ve.productID,
			"error", err,
		)
		return fmt.Errorf("%w (orphaned product %s left in store: %v)", ve, ve.productID, err)
	}
	return ve
}

func rowFailure(line int, kind FailureKind, err error) *RowFailure {
	return &RowFailure{
		Line:   line,
		Kind:   kind,
		Reason: err.Error(),
		Code:   MapError(err).Code,
	}
}
