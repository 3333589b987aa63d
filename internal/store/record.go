package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record is one stored row keyed by column name.
type Record map[string]any

// ID returns the record's id column as a string.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the column as a string. Missing and NULL columns yield "".
func (r Record) String(key string) string {
	switch v := valueOf(r[key]).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case [16]byte:
		// pgx returns uuid columns as [16]byte through Values().
		return uuid.UUID(v).String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the column as an int. Unparseable values yield 0.
func (r Record) Int(key string) int {
	switch v := valueOf(r[key]).(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	case []byte:
		n, _ := strconv.Atoi(string(v))
		return n
	default:
		return 0
	}
}

// Bool returns the column as a bool. SQLite stores booleans as integers.
func (r Record) Bool(key string) bool {
	switch v := valueOf(r[key]).(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Decimal returns the column as a decimal. Unparseable values yield zero.
func (r Record) Decimal(key string) decimal.Decimal {
	raw := r[key]
	if d, ok := raw.(decimal.Decimal); ok {
		return d
	}
	switch v := valueOf(raw).(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// Strings returns a list column. Postgres text[] arrives as []any, SQLite
// stores lists as JSON text, the memory store keeps []string.
func (r Record) Strings(key string) []string {
	switch v := valueOf(r[key]).(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return decodeJSONList(v)
	case []byte:
		return decodeJSONList(string(v))
	default:
		return nil
	}
}

// Time returns a timestamp column.
func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	default:
		return time.Time{}
	}
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// valueOf unwraps driver.Valuer values (pgtype.Numeric, decimal.Decimal and
// friends) to their plain driver representation.
func valueOf(v any) any {
	if valuer, ok := v.(driver.Valuer); ok {
		plain, err := valuer.Value()
		if err != nil {
			return nil
		}
		return plain
	}
	return v
}

func decodeJSONList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
