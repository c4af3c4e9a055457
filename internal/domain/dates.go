package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Synthetic date column names.
const (
	CombinedDateColumn = "__combined_date"
	AutogenDateColumn  = "__date_autogen"
)

var autogenStart = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// fallbackLayouts are tried after dateparse gives up.
var fallbackLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"2006-01-02T15:04",
	"2006/01/02 15:04",
	"01/02/2006 15:04",
	"1/2/2006 3:04 PM",
}

var weekdayNames = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"mon": true, "tue": true, "tues": true, "wed": true, "thu": true,
	"thur": true, "thurs": true, "fri": true, "sat": true, "sun": true,
}

// Frame is a table indexed by timestamp: Rows[i] was observed at Timestamps[i].
// Rows alias the source table's maps and must not be mutated.
type Frame struct {
	Timestamps []time.Time
	Rows       []RawRow
	Dropped    int
}

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.Timestamps) }

// NormalizeDates builds the timestamp index. When the table has Date, Day and
// Year columns the three are combined. When schema has no date column, daily
// dates from 2000-01-01 are synthesized. Rows whose date cannot be parsed are
// dropped; the rest are stable-sorted ascending. The returned schema names the
// column actually used.
func NormalizeDates(table RawTable, schema Schema) (Frame, Schema) {
	n := len(table.Rows)
	ts := make([]time.Time, 0, n)
	rows := make([]RawRow, 0, n)

	switch {
	case hasCompositeDate(table.Columns):
		schema.DateCol = CombinedDateColumn
		schema.DateSynthetic = true
		for _, row := range table.Rows {
			if t, ok := ParseTimestamp(combinedDateText(row)); ok {
				ts = append(ts, t)
				rows = append(rows, row)
			}
		}
	case schema.DateCol == "":
		schema.DateCol = AutogenDateColumn
		schema.DateSynthetic = true
		for i, row := range table.Rows {
			ts = append(ts, autogenStart.AddDate(0, 0, i))
			rows = append(rows, row)
		}
	default:
		for _, row := range table.Rows {
			if t, ok := ParseTimestamp(row[schema.DateCol]); ok {
				ts = append(ts, t)
				rows = append(rows, row)
			}
		}
	}

	idx := make([]int, len(ts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ts[idx[a]].Before(ts[idx[b]]) })

	f := Frame{
		Timestamps: make([]time.Time, len(idx)),
		Rows:       make([]RawRow, len(idx)),
		Dropped:    n - len(idx),
	}
	for i, j := range idx {
		f.Timestamps[i] = ts[j]
		f.Rows[i] = rows[j]
	}
	return f, schema
}

func hasCompositeDate(columns []string) bool {
	return containsColumn(columns, "Date") && containsColumn(columns, "Day") && containsColumn(columns, "Year")
}

func combinedDateText(row RawRow) string {
	return row["Date"] + " " + row["Day"] + ", " + row["Year"]
}

// ParseTimestamp infers the format of s. Ambiguous numeric dates are read
// month first. Results are in UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	cleaned := stripWeekdays(s)
	if cleaned == "" {
		return time.Time{}, false
	}
	if t, err := dateparse.ParseIn(cleaned, time.UTC); err == nil {
		return t, true
	}
	if cleaned != s {
		if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
			return t, true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, cleaned, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stripWeekdays removes weekday names and tidies the separators they leave,
// e.g. "June 5 Monday, 2020" -> "June 5, 2020".
func stripWeekdays(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		word := strings.ToLower(strings.Trim(f, ",."))
		if weekdayNames[word] {
			if strings.HasSuffix(f, ",") && len(kept) > 0 && !strings.HasSuffix(kept[len(kept)-1], ",") {
				kept[len(kept)-1] += ","
			}
			continue
		}
		kept = append(kept, f)
	}
	out := strings.Join(kept, " ")
	out = strings.ReplaceAll(out, " ,", ",")
	return strings.Trim(out, ", ")
}
