// Package tabular reads CSV and XLSX files into raw, untyped tables.
package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile reads a table from path, choosing the format by extension.
func ReadFile(path string) (domain.RawTable, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.RawTable{}, &domain.ParseError{Source: path, Cause: err}
		}
		return ReadCSV(bytes.NewReader(data), path)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	default:
		return domain.RawTable{}, &domain.ParseError{Source: path, Cause: fmt.Errorf("unsupported file type %q", ext)}
	}
}

// ReadCSV parses CSV from r. Input that is not valid UTF-8 is decoded as
// Latin-1. A leading byte order mark is dropped.
func ReadCSV(r io.Reader, source string) (domain.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.RawTable{}, &domain.ParseError{Source: source, Cause: err}
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		data, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return domain.RawTable{}, &domain.ParseError{Source: source, Cause: fmt.Errorf("decode latin-1: %w", err)}
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return domain.RawTable{}, &domain.ParseError{Source: source, Cause: err}
	}
	return buildTable(records, source)
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(path string) (domain.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.RawTable{}, &domain.ParseError{Source: path, Cause: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.RawTable{}, &domain.ParseError{Source: path, Cause: errors.New("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.RawTable{}, &domain.ParseError{Source: path, Cause: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}
	return buildTable(rows, path)
}

// buildTable turns the header row and data rows into a RawTable. Short rows
// are padded with blanks; cells beyond the header are dropped.
func buildTable(records [][]string, source string) (domain.RawTable, error) {
	if len(records) == 0 {
		return domain.RawTable{}, &domain.ParseError{Source: source, Cause: errors.New("no header row")}
	}

	columns := Headers(records[0])
	table := domain.RawTable{
		Columns: columns,
		Rows:    make([]domain.RawRow, 0, len(records)-1),
		Source:  source,
	}
	for _, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		row := make(domain.RawRow, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Headers normalizes a header row: names are trimmed, blank names become
// "Unnamed: <index>", and repeats get ".1", ".2" suffixes.
func Headers(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if seen[name] {
			base := name
			for n := 1; seen[name]; n++ {
				name = base + "." + strconv.Itoa(n)
			}
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// FileExtractor reads a single local file on every Extract.
type FileExtractor struct {
	path string
}

// NewFileExtractor creates a FileExtractor for path.
func NewFileExtractor(path string) *FileExtractor {
	return &FileExtractor{path: path}
}

// Extract reads the file. Local files need no acknowledgement, so the
// returned table has no Commit.
func (e *FileExtractor) Extract(ctx context.Context) (domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawTable{}, err
	}
	return ReadFile(e.path)
}
