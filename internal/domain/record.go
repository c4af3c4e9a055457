package domain

import (
	"context"
	"sort"
	"time"
)

// RawRow maps a source column name to its cell text. Blank cells are "".
type RawRow map[string]string

// RawTable is an untyped table as read from a file or topic.
type RawTable struct {
	Columns []string
	Rows    []RawRow
	Source  string

	// Commit acknowledges the source once the table has been fully loaded.
	// Nil for sources without acknowledgement (local files).
	Commit func(ctx context.Context) error
}

// Schema records which source columns were assigned to each semantic role.
type Schema struct {
	DateCol       string   `json:"date_col"`
	DateSynthetic bool     `json:"date_synthetic"`
	WaterCol      string   `json:"water_col"`
	AreaCol       string   `json:"area_col,omitempty"`
	FloodCol      string   `json:"flood_col,omitempty"`
	DamageCols    []string `json:"damage_cols,omitempty"`
}

// Record is one cleaned, time-indexed observation.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Water     float64   `json:"water"`
	ZScore    float64   `json:"zscore"`
	IsOutlier bool      `json:"is_outlier"`
	IsFlood   bool      `json:"is_flood"`
	Year      int       `json:"year"`
	Area      string    `json:"area,omitempty"`
	Damage    []float64 `json:"damage,omitempty"`

	Source RawRow `json:"-"`
}

// AreaCount is a flood tally for one area, optionally geocoded.
type AreaCount struct {
	Area  string `json:"area"`
	Count int    `json:"count"`

	Geo              *Geo    `json:"geo,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ProcessedDataset is the immutable result of one processing action.
// Consumers must treat it as read-only; a new action produces a new value.
type ProcessedDataset struct {
	Records []Record `json:"-"`
	Columns []string `json:"columns"`
	Schema  Schema   `json:"schema"`

	FloodsPerYear    map[int]int                `json:"floods_per_year"`
	AvgWaterPerYear  map[int]float64            `json:"avg_water_per_year"`
	DamagePerYear    map[int]map[string]float64 `json:"damage_per_year"`
	TopAffectedAreas []AreaCount                `json:"top_affected_areas"`

	RowsRead    int       `json:"rows_read"`
	DroppedRows int       `json:"dropped_rows"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Years returns every year present in the dataset, ascending.
func (d *ProcessedDataset) Years() []int {
	years := make([]int, 0, len(d.FloodsPerYear))
	for y := range d.FloodsPerYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// WaterSeries returns the timestamps and cleaned water levels in record order.
func (d *ProcessedDataset) WaterSeries() ([]time.Time, []float64) {
	ts := make([]time.Time, len(d.Records))
	vs := make([]float64, len(d.Records))
	for i, r := range d.Records {
		ts[i] = r.Timestamp
		vs[i] = r.Water
	}
	return ts, vs
}

// FloodCount returns the total number of flood records.
func (d *ProcessedDataset) FloodCount() int {
	n := 0
	for _, c := range d.FloodsPerYear {
		n += c
	}
	return n
}

// OutlierCount returns the number of records flagged as outliers.
func (d *ProcessedDataset) OutlierCount() int {
	n := 0
	for i := range d.Records {
		if d.Records[i].IsOutlier {
			n++
		}
	}
	return n
}
