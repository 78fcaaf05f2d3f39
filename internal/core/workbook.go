package core

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadableWorkbook is returned for zip data excelize cannot open.
var ErrUnreadableWorkbook = errors.New("unreadable workbook")

// zipMagic starts every .xlsx file.
var zipMagic = []byte("PK\x03\x04")

// IsWorkbook reports whether data looks like an Excel workbook.
func IsWorkbook(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// TokenizeWorkbook reads the first sheet of an .xlsx file into rows keyed by
// its header row. Cells are cleaned like delimited text; blank rows are skipped.
func TokenizeWorkbook(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrUnreadableWorkbook, sheet, err)
	}

	var lines [][]string
	for _, r := range cells {
		if blankRow(r) {
			continue
		}
		lines = append(lines, r)
	}
	if len(lines) < 2 {
		return nil, nil
	}

	headers := make([]string, len(lines[0]))
	for i, h := range lines[0] {
		headers[i] = cleanCell(sanitizeText(h))
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, values := range lines[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = cleanCell(sanitizeText(values[i]))
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
