package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ProductsSheet is read in preference to the first sheet when present.
const ProductsSheet = "Products"

// ParseXLSX reads a workbook into rows with the same header and blank-row
// rules as Parse. Line numbers are spreadsheet row numbers.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if idx, err := f.GetSheetIndex(ProductsSheet); err == nil && idx >= 0 {
		sheet = ProductsSheet
	}
	if sheet == "" {
		return nil, fmt.Errorf("invalid xlsx: workbook has no sheets")
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var (
		header []string
		rows   []Row
	)
	for i, record := range records {
		if blankRecord(record) {
			continue
		}
		if header == nil {
			header = headerNames(record)
			continue
		}
		rows = append(rows, buildRow(i+1, header, record))
	}
	return rows, nil
}
