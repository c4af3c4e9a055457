package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// nonNumericRe matches everything ParseLenientNumber discards.
var nonNumericRe = regexp.MustCompile(`[^0-9.\-]`)

// ParseLenientNumber strips every character other than digits, '.' and '-'
// and parses the remainder. Returns 0 when nothing parseable is left.
func ParseLenientNumber(s string) float64 {
	v, err := strconv.ParseFloat(nonNumericRe.ReplaceAllString(s, ""), 64)
	if err != nil || !finite(v) {
		return 0
	}
	return v
}

// parseNumber coerces a cell to a number. Blank and unparseable cells, and
// non-finite values, are missing.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

// CleanWater coerces the water column to numbers and fills every gap using
// method. When the schema has no water column, the first numeric column (every
// non-blank cell a number, at least one non-blank) other than the date source
// columns is used. The returned schema names the column actually used.
func CleanWater(frame Frame, schema Schema, columns []string, method InterpMethod) ([]float64, Schema, error) {
	if frame.Len() == 0 {
		return nil, schema, &SchemaError{Role: "date", Reason: "no rows with a parseable date"}
	}
	if schema.WaterCol == "" {
		col, ok := firstNumericColumn(frame.Rows, columns, dateSourceColumns(schema))
		if !ok {
			return nil, schema, &SchemaError{Role: "water", Reason: "no numeric column found to use as water level"}
		}
		schema.WaterCol = col
	}

	values := make([]float64, frame.Len())
	valid := make([]bool, frame.Len())
	hasValid := false
	for i, row := range frame.Rows {
		values[i], valid[i] = parseNumber(row[schema.WaterCol])
		hasValid = hasValid || valid[i]
	}
	if !hasValid {
		return nil, schema, &SchemaError{Role: "water", Reason: "column " + strconv.Quote(schema.WaterCol) + " has no numeric values"}
	}

	switch method {
	case InterpTime:
		interpolateByX(values, valid, unixSeconds(frame.Timestamps))
	case InterpPad:
		interpolatePad(values, valid)
	case InterpNearest:
		interpolateNearest(values, valid, unixSeconds(frame.Timestamps))
	default:
		interpolateByX(values, valid, nil)
	}
	return values, schema, nil
}

func dateSourceColumns(schema Schema) map[string]bool {
	switch {
	case schema.DateCol == CombinedDateColumn:
		return map[string]bool{"Date": true, "Day": true, "Year": true}
	case schema.DateSynthetic:
		return nil
	default:
		return map[string]bool{schema.DateCol: true}
	}
}

func firstNumericColumn(rows []RawRow, columns []string, exclude map[string]bool) (string, bool) {
	for _, c := range columns {
		if exclude[c] {
			continue
		}
		if isNumericColumn(rows, c) {
			return c, true
		}
	}
	return "", false
}

func isNumericColumn(rows []RawRow, col string) bool {
	seen := false
	for _, row := range rows {
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		if _, ok := parseNumber(cell); !ok {
			return false
		}
		seen = true
	}
	return seen
}

func unixSeconds(ts []time.Time) []float64 {
	xs := make([]float64, len(ts))
	for i, t := range ts {
		xs[i] = float64(t.UnixNano()) / 1e9
	}
	return xs
}

// interpolateByX fills gaps linearly against xs (row position when xs is nil).
// Values before the first and after the last valid sample take that sample.
func interpolateByX(values []float64, valid []bool, xs []float64) {
	x := func(i int) float64 {
		if xs == nil {
			return float64(i)
		}
		return xs[i]
	}

	prev := -1
	for i := range values {
		if !valid[i] {
			continue
		}
		switch {
		case prev == -1:
			for k := 0; k < i; k++ {
				values[k] = values[i]
			}
		case i-prev > 1:
			x0, x1 := x(prev), x(i)
			for k := prev + 1; k < i; k++ {
				if x1 == x0 {
					values[k] = values[prev]
					continue
				}
				frac := (x(k) - x0) / (x1 - x0)
				values[k] = values[prev] + (values[i]-values[prev])*frac
			}
		}
		prev = i
	}
	for k := prev + 1; k < len(values); k++ {
		values[k] = values[prev]
	}
}

// interpolatePad forward fills, then back fills any leading gap.
func interpolatePad(values []float64, valid []bool) {
	first := -1
	for i := range values {
		if valid[i] {
			if first == -1 {
				first = i
			}
			continue
		}
		if first != -1 {
			values[i] = values[i-1]
		}
	}
	for k := 0; k < first; k++ {
		values[k] = values[first]
	}
}

// interpolateNearest fills each gap with the valid sample closest in time.
// Ties go to the earlier sample.
func interpolateNearest(values []float64, valid []bool, xs []float64) {
	prev := -1
	next := nextValid(valid, 0)
	for i := range values {
		if valid[i] {
			prev = i
			next = nextValid(valid, i+1)
			continue
		}
		switch {
		case prev == -1:
			values[i] = values[next]
		case next == -1:
			values[i] = values[prev]
		case math.Abs(xs[i]-xs[prev]) <= math.Abs(xs[next]-xs[i]):
			values[i] = values[prev]
		default:
			values[i] = values[next]
		}
	}
}

func nextValid(valid []bool, from int) int {
	for i := from; i < len(valid); i++ {
		if valid[i] {
			return i
		}
	}
	return -1
}
