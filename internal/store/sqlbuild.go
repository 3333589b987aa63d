package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Dialect supplies the syntax differences of one SQL backend.
type Dialect struct {
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// OrderBy is the column that preserves insertion order.
	OrderBy string
}

// Postgres numbers its parameters and orders by an identity column.
var Postgres = Dialect{
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	OrderBy:     "seq",
}

// SQLite uses anonymous parameters and orders by rowid.
var SQLite = Dialect{
	Placeholder: func(int) string { return "?" },
	OrderBy:     "rowid",
}

// Statement is SQL text with its bind arguments.
type Statement struct {
	SQL  string
	Args []any
}

// SelectSQL builds SELECT * FROM collection WHERE ... in insertion order.
func (d Dialect) SelectSQL(collection string, where Filter, limit int) (Statement, error) {
	if err := checkCollection(collection); err != nil {
		return Statement{}, err
	}
	clause, args, err := d.where(where, 1)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s%s ORDER BY %s", QuoteIdentifier(collection), clause, d.OrderBy)
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	return Statement{SQL: b.String(), Args: args}, nil
}

// InsertSQL builds INSERT ... RETURNING *. Columns are emitted in sorted order.
func (d Dialect) InsertSQL(collection string, fields Record) (Statement, error) {
	if err := checkCollection(collection); err != nil {
		return Statement{}, err
	}
	if len(fields) == 0 {
		return Statement{}, &Error{Code: CodeInvalidColumn, Message: "insert without columns"}
	}

	cols := sortedKeys(fields)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		if !columnPattern.MatchString(col) {
			return Statement{}, invalidColumn(col)
		}
		quoted[i] = QuoteIdentifier(col)
		marks[i] = d.Placeholder(i + 1)
		args[i] = fields[col]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		QuoteIdentifier(collection), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	return Statement{SQL: sql, Args: args}, nil
}

// DeleteSQL builds DELETE FROM collection WHERE .... An empty filter is
// refused so a bug cannot truncate a table.
func (d Dialect) DeleteSQL(collection string, where Filter) (Statement, error) {
	if err := checkCollection(collection); err != nil {
		return Statement{}, err
	}
	if len(where) == 0 {
		return Statement{}, &Error{Code: CodeInvalidColumn, Message: "delete without filter"}
	}
	clause, args, err := d.where(where, 1)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:  fmt.Sprintf("DELETE FROM %s%s", QuoteIdentifier(collection), clause),
		Args: args,
	}, nil
}

func (d Dialect) where(where Filter, start int) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	cols := make([]string, 0, len(where))
	for col := range where {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		if !columnPattern.MatchString(col) {
			return "", nil, invalidColumn(col)
		}
		parts[i] = fmt.Sprintf("%s = %s", QuoteIdentifier(col), d.Placeholder(start+i))
		args[i] = where[col]
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// QuoteIdentifier double-quotes a SQL identifier, escaping embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func invalidColumn(col string) error {
	return &Error{Code: CodeInvalidColumn, Message: fmt.Sprintf("invalid column name %q", col)}
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
