package importer

// encoding.go cleans up raw upload bytes before parsing:
//   - UTF-8 BOM added by Windows spreadsheet exports is dropped
//   - invalid UTF-8 bytes are replaced with '?'
//   - header cells lose Excel formula wrappers and stray quotes (CleanCell);
//     data cells are only trimmed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrFileTooLarge is returned by ReadSource when the input exceeds the limit.
var ErrFileTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadSource reads at most limit bytes from r and returns them as clean UTF-8
// text. A limit <= 0 disables the check.
func ReadSource(r io.Reader, limit int64) (string, error) {
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read import source: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	return decode(data), nil
}

// decode strips a leading BOM and sanitizes invalid UTF-8.
func decode(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			b.WriteByte('?')
		} else {
			b.Write(data[:size])
		}
		data = data[size:]
	}
	return b.String()
}

// CleanCell trims whitespace and removes spreadsheet artifacts from a header
// name: an Excel text-formula wrapper (="...") or leading '=', and surrounding
// quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
