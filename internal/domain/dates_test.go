package domain

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"2020-01-02", day(2020, 1, 2), true},
		{"01/02/2020", day(2020, 1, 2), true},
		{"June 5, 2020", day(2020, 6, 5), true},
		{"June 5 Monday, 2020", day(2020, 6, 5), true},
		{"Monday, June 5, 2020", day(2020, 6, 5), true},
		{"  2021-03-04  ", day(2021, 3, 4), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
		{"Monday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestStripWeekdays(t *testing.T) {
	assert.Equal(t, "June 5, 2020", stripWeekdays("June 5 Monday, 2020"))
	assert.Equal(t, "June 5, 2020", stripWeekdays("Monday, June 5, 2020"))
	assert.Equal(t, "2020-06-05", stripWeekdays("2020-06-05"))
	assert.Empty(t, stripWeekdays("Sunday"))
}

func TestNormalizeDates_SortsAndDropsUnparseable(t *testing.T) {
	table := RawTable{
		Columns: []string{"Date", "Level"},
		Rows: []RawRow{
			{"Date": "2020-01-03", "Level": "3"},
			{"Date": "garbage", "Level": "9"},
			{"Date": "2020-01-01", "Level": "1"},
			{"Date": "", "Level": "8"},
			{"Date": "2020-01-02", "Level": "2"},
		},
	}

	frame, schema := NormalizeDates(table, Schema{DateCol: "Date"})

	require.Equal(t, 3, frame.Len())
	assert.Equal(t, 2, frame.Dropped)
	assert.Equal(t, "Date", schema.DateCol)
	assert.False(t, schema.DateSynthetic)
	assert.True(t, sort.SliceIsSorted(frame.Timestamps, func(i, j int) bool {
		return frame.Timestamps[i].Before(frame.Timestamps[j])
	}))
	assert.Equal(t, "1", frame.Rows[0]["Level"])
	assert.Equal(t, "3", frame.Rows[2]["Level"])
}

func TestNormalizeDates_WellFormedKeepsRowCount(t *testing.T) {
	var rows []RawRow
	for i := 30; i >= 1; i-- {
		rows = append(rows, RawRow{"Date": day(2021, 4, i).Format("2006-01-02")})
	}

	frame, _ := NormalizeDates(RawTable{Columns: []string{"Date"}, Rows: rows}, Schema{DateCol: "Date"})

	assert.Equal(t, 30, frame.Len())
	assert.Zero(t, frame.Dropped)
	assert.True(t, frame.Timestamps[0].Equal(day(2021, 4, 1)))
}

func TestNormalizeDates_DuplicatesKeepInputOrder(t *testing.T) {
	table := RawTable{
		Columns: []string{"Date", "Tag"},
		Rows: []RawRow{
			{"Date": "2020-01-02", "Tag": "first"},
			{"Date": "2020-01-01", "Tag": "early"},
			{"Date": "2020-01-02", "Tag": "second"},
		},
	}

	frame, _ := NormalizeDates(table, Schema{DateCol: "Date"})

	require.Equal(t, 3, frame.Len())
	assert.Equal(t, []string{"early", "first", "second"},
		[]string{frame.Rows[0]["Tag"], frame.Rows[1]["Tag"], frame.Rows[2]["Tag"]})
}

func TestNormalizeDates_CombinesDateDayYear(t *testing.T) {
	table := RawTable{
		Columns: []string{"Date", "Day", "Year", "Level"},
		Rows: []RawRow{
			{"Date": "June 6", "Day": "Tuesday", "Year": "2017", "Level": "2"},
			{"Date": "June 5", "Day": "Monday", "Year": "2017", "Level": "1"},
		},
	}

	frame, schema := NormalizeDates(table, Schema{DateCol: "Date"})

	assert.Equal(t, CombinedDateColumn, schema.DateCol)
	assert.True(t, schema.DateSynthetic)
	require.Equal(t, 2, frame.Len())
	assert.True(t, frame.Timestamps[0].Equal(day(2017, 6, 5)))
	assert.True(t, frame.Timestamps[1].Equal(day(2017, 6, 6)))
	_, mutated := table.Rows[0][CombinedDateColumn]
	assert.False(t, mutated, "source rows stay untouched")
}

func TestNormalizeDates_AutogeneratesDailyDates(t *testing.T) {
	table := RawTable{
		Columns: []string{"Reading"},
		Rows:    []RawRow{{"Reading": "1"}, {"Reading": "2"}, {"Reading": "3"}},
	}

	frame, schema := NormalizeDates(table, Schema{})

	assert.Equal(t, AutogenDateColumn, schema.DateCol)
	assert.True(t, schema.DateSynthetic)
	require.Equal(t, 3, frame.Len())
	assert.True(t, frame.Timestamps[0].Equal(day(2000, 1, 1)))
	assert.True(t, frame.Timestamps[2].Equal(day(2000, 1, 3)))
	assert.Equal(t, "2", frame.Rows[1]["Reading"])
}
