// Package xlsx reads one sheet of an Excel workbook into raw rows keyed by
// the sheet's header cells.
package xlsx

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/andys/sheetsync/align"
)

var (
	// ErrSheetNotFound means the workbook has no sheet with the given name.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrParse covers an unreadable workbook file.
	ErrParse = errors.New("failed to parse workbook")
)

// Reader opens the workbook per call; nothing is cached between sheets.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// ReadSheet parses one sheet. The first row is taken as the header; header
// names are trimmed and lower-cased, unnamed columns are dropped, and rows
// with no values at all are not returned. Sheet name matching ignores case.
func (r *Reader) ReadSheet(path, sheetName string) ([]align.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	defer f.Close()

	actual := ""
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, sheetName) {
			actual = name
			break
		}
	}
	if actual == "" {
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheetName, path)
	}

	rows, err := f.GetRows(actual)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrParse, actual, err)
	}
	if len(rows) == 0 {
		slog.Warn("sheet is empty", "sheet", actual)
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		h := strings.ToLower(strings.TrimSpace(cell))
		if h == "" || strings.HasPrefix(h, "unnamed") {
			continue
		}
		headers[i] = h
	}

	out := make([]align.RawRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := make(align.RawRow)
		for i, cell := range cells {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			row[headers[i]] = cell
		}
		if len(row) == 0 {
			continue
		}
		out = append(out, row)
	}

	slog.Info("sheet read", "sheet", actual, "rows", len(out))
	return out, nil
}
