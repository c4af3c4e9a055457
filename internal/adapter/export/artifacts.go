// Package export renders processed datasets and forecasts as CSV artifacts.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/forecast"
)

// Columns appended to every processed row.
var derivedColumns = []string{"zscore_water", "is_outlier_water", "is_flood", "year"}

// Artifact is one downloadable CSV rendering of a dataset.
type Artifact struct {
	Name     string
	FileName string

	// Available reports whether the dataset carries the data this artifact needs.
	Available func(ds *domain.ProcessedDataset) bool
	Write     func(w io.Writer, ds *domain.ProcessedDataset) error
}

// Artifacts lists every dataset artifact in export order.
var Artifacts = []Artifact{
	{Name: "processed", FileName: "processed_flood_data.csv", Available: always, Write: WriteProcessed},
	{Name: "summary", FileName: "summary_per_year.csv", Available: always, Write: WriteSummary},
	{Name: "top_affected", FileName: "top_affected.csv", Available: hasAreas, Write: WriteTopAffected},
	{Name: "damage", FileName: "damage_per_year.csv", Available: hasDamage, Write: WriteDamage},
}

// ForecastFileName is the artifact written for a forecast run.
const ForecastFileName = "forecast.csv"

// Lookup finds an artifact by name.
func Lookup(name string) (Artifact, bool) {
	for _, a := range Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

func always(*domain.ProcessedDataset) bool { return true }

func hasAreas(ds *domain.ProcessedDataset) bool { return ds.Schema.AreaCol != "" }

func hasDamage(ds *domain.ProcessedDataset) bool { return len(ds.Schema.DamageCols) > 0 }

// WriteProcessed writes every record in original column order. The date,
// water, and damage columns carry their cleaned values, followed by any
// synthetic date column and the derived flags.
func WriteProcessed(w io.Writer, ds *domain.ProcessedDataset) error {
	cw := csv.NewWriter(w)
	header := append(slices.Clone(ds.Columns), derivedColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	damageIndex := make(map[string]int, len(ds.Schema.DamageCols))
	for i, c := range ds.Schema.DamageCols {
		damageIndex[c] = i
	}
	layout := timestampLayout(ds.Records)

	row := make([]string, len(header))
	for i := range ds.Records {
		r := &ds.Records[i]
		for j, col := range ds.Columns {
			switch {
			case col == ds.Schema.DateCol:
				row[j] = r.Timestamp.Format(layout)
			case col == ds.Schema.WaterCol:
				row[j] = formatFloat(r.Water)
			default:
				if k, ok := damageIndex[col]; ok && k < len(r.Damage) {
					row[j] = formatFloat(r.Damage[k])
				} else {
					row[j] = r.Source[col]
				}
			}
		}
		n := len(ds.Columns)
		row[n] = formatFloat(r.ZScore)
		row[n+1] = strconv.FormatBool(r.IsOutlier)
		row[n+2] = strconv.FormatBool(r.IsFlood)
		row[n+3] = strconv.Itoa(r.Year)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary writes year, floods_per_year, avg_water_per_year.
func WriteSummary(w io.Writer, ds *domain.ProcessedDataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"year", "floods_per_year", "avg_water_per_year"}); err != nil {
		return err
	}
	for _, y := range ds.Years() {
		rec := []string{strconv.Itoa(y), strconv.Itoa(ds.FloodsPerYear[y]), formatFloat(ds.AvgWaterPerYear[y])}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTopAffected writes the area ranking, with coordinates when geocoded.
func WriteTopAffected(w io.Writer, ds *domain.ProcessedDataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"area", "count", "lat", "lon"}); err != nil {
		return err
	}
	for _, a := range ds.TopAffectedAreas {
		rec := []string{a.Area, strconv.Itoa(a.Count), "", ""}
		if a.Geo != nil {
			rec[2] = formatFloat(a.Geo.Lat)
			rec[3] = formatFloat(a.Geo.Lon)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDamage writes one row per year with a total for each damage column.
func WriteDamage(w io.Writer, ds *domain.ProcessedDataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"year"}, ds.Schema.DamageCols...)); err != nil {
		return err
	}
	years := make([]int, 0, len(ds.DamagePerYear))
	for y := range ds.DamagePerYear {
		years = append(years, y)
	}
	slices.Sort(years)
	for _, y := range years {
		rec := []string{strconv.Itoa(y)}
		for _, c := range ds.Schema.DamageCols {
			rec = append(rec, formatFloat(ds.DamagePerYear[y][c]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecast writes the train, test, predicted, and future series of an
// evaluation as month,series,value rows.
func WriteForecast(w io.Writer, ev forecast.Evaluation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "series", "value"}); err != nil {
		return err
	}
	groups := []struct {
		name   string
		points []forecast.Point
	}{
		{"train", ev.Train},
		{"test", ev.Test},
		{"predicted", ev.Predictions},
		{"future", ev.Future},
	}
	for _, g := range groups {
		for _, p := range g.points {
			if err := cw.Write([]string{p.Month.Format(time.DateOnly), g.name, formatFloat(p.Value)}); err != nil {
				return fmt.Errorf("write %s: %w", g.name, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// timestampLayout prints date-only values when no record carries a time of day.
func timestampLayout(records []domain.Record) string {
	for i := range records {
		t := records[i].Timestamp
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
			return time.DateTime
		}
	}
	return time.DateOnly
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
