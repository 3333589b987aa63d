package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one data line of an import file keyed by header name. A column the
// line did not reach is absent from Fields, which is distinct from present
// but empty.
type Row struct {
	Line   int               `json:"line"`
	Fields map[string]string `json:"fields"`
}

// Get returns the named cell. Header names match exactly first, then
// case-insensitively, so "CategoryID" still feeds categoryId. Parsed rows
// never hold two keys that differ only by case.
func (r Row) Get(name string) (string, bool) {
	if v, ok := r.Fields[name]; ok {
		return v, true
	}
	for k, v := range r.Fields {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// ParseOptions selects the tokenizer.
type ParseOptions struct {
	// Quoted enables RFC 4180 quoting so cells may contain commas and line
	// breaks. Off, every comma is a separator.
	Quoted bool
}

// Parse splits raw delimited text into rows. The first non-blank line is the
// header; later lines map positionally onto it, blank lines are skipped,
// missing trailing cells are absent and extra cells are dropped. Cells are
// split on every comma with no quote handling.
func Parse(raw string) []Row {
	lines := strings.Split(decode([]byte(raw)), "\n")

	var (
		header []string
		rows   []Row
	)
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		cells := strings.Split(line, ",")
		if header == nil {
			header = headerNames(cells)
			continue
		}
		rows = append(rows, buildRow(i+1, header, cells))
	}
	return rows
}

// ParseWith parses raw with the selected tokenizer.
func ParseWith(raw string, opts ParseOptions) ([]Row, error) {
	if !opts.Quoted {
		return Parse(raw), nil
	}

	r := csv.NewReader(strings.NewReader(decode([]byte(raw))))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var (
		header []string
		rows   []Row
	)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		if blankRecord(record) {
			continue
		}

		if header == nil {
			header = headerNames(record)
			continue
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, buildRow(line, header, record))
	}
	return rows, nil
}

// headerNames cleans the header cells. A name repeating an earlier one,
// ignoring case, is blanked so the first column in file order wins.
func headerNames(cells []string) []string {
	names := make([]string, len(cells))
	seen := make(map[string]bool, len(cells))
	for i, c := range cells {
		name := CleanCell(c)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		names[i] = name
	}
	return names
}

func buildRow(line int, header, cells []string) Row {
	row := Row{Line: line, Fields: make(map[string]string, len(header))}
	for i, name := range header {
		if name == "" || i >= len(cells) {
			continue
		}
		row.Fields[name] = strings.TrimSpace(cells[i])
	}
	return row
}

func blankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
