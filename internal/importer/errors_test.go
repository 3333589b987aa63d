package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/store"
)

// ============================================================================
// MapError Tests
// ============================================================================

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"nil", nil, ""},
		{"missing field", &ValidationFailure{Line: 2, Reason: ReasonMissingRequired, Fields: []string{"name"}}, "IMP001"},
		{"duplicate attribute", fmt.Errorf("create variant: %w", catalog.ErrDuplicateAttribute), "IMP002"},
		{"busy", ErrTooManyImports, "IMP003"},
		{"empty", ErrEmptyInput, "IMP004"},
		{"format", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ".pdf"), "IMP005"},
		{"cancelled", context.Canceled, "IMP006"},
		{"deadline", fmt.Errorf("row 9: %w", context.DeadlineExceeded), "IMP007"},
		{"too large", ErrFileTooLarge, "FILE001"},
		{"store conflict", fmt.Errorf("insert variant: %w", &store.Error{Code: store.CodeUniqueViolation, Message: "sku"}), "DB001"},
		{"store foreign key", &store.Error{Code: store.CodeForeignKey, Message: "value"}, "DB002"},
		{"duplicate key text", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"invalid csv", errors.New("invalid csv: bare quote"), "FILE002"},
		{"connection refused", errors.New("dial tcp: Connection Refused"), "DB003"},
		{"connection reset", errors.New("read: connection reset by peer"), "DB004"},
		{"unknown", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.code {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got, tt.code)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q", got)
	}
	got := FormatUserError(ErrTooManyImports)
	if !strings.Contains(got, "(Code: IMP003)") || !strings.HasSuffix(got, "Wait a moment and try again") {
		t.Errorf("FormatUserError() = %q", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true")
	}
	if !IsUserFacing(ErrEmptyInput) {
		t.Error("IsUserFacing(ErrEmptyInput) = false")
	}
	if IsUserFacing(errors.New("nope")) {
		t.Error("IsUserFacing(unknown) = true")
	}
}
