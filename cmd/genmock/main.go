// Command genmock generates a synthetic daily flood monitoring table and runs
// it through the real processor so the printed stats can seed test
// assertions.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv-out data/sample_data.csv \
//	  -json-out data/sample_records.json \
//	  -seed 42
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/tabular"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/pipeline"
)

var (
	startDate = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	areas     = []string{"Brgy A", "Brgy B", "Brgy C"}
	header    = []string{"Date", "WaterLevel_m", "Barangay", "Estimated_damage"}
)

// sampleRow keeps the column order of the CSV when marshaled as a Kafka fixture.
type sampleRow struct {
	Date            string `json:"Date"`
	WaterLevel      string `json:"WaterLevel_m"`
	Barangay        string `json:"Barangay"`
	EstimatedDamage string `json:"Estimated_damage"`
}

func (r sampleRow) fields() []string {
	return []string{r.Date, r.WaterLevel, r.Barangay, r.EstimatedDamage}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvOut := flag.String("csv-out", "data/sample_data.csv", "output path for the sample CSV table")
	jsonOut := flag.String("json-out", "", "optional output path for a JSON row fixture (Kafka source format)")
	days := flag.Int("days", 360, "number of daily rows")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *days < 1 {
		flag.Usage()
		return fmt.Errorf("-days must be positive")
	}

	rows := generate(*days, *seed)

	if err := writeCSV(*csvOut, rows); err != nil {
		return fmt.Errorf("writing sample csv: %w", err)
	}
	log.Printf("wrote %d rows: %s", len(rows), *csvOut)

	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, rows); err != nil {
			return fmt.Errorf("writing json fixture: %w", err)
		}
		log.Printf("wrote json fixture: %s", *jsonOut)
	}

	// Fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(startDate.AddDate(1, 0, 0)))
	defer domain.SetClock(nil)

	table, err := tabular.ReadFile(*csvOut)
	if err != nil {
		return fmt.Errorf("reading back sample: %w", err)
	}
	proc := pipeline.NewProcessor(nil, "", slog.New(slog.DiscardHandler))
	ds, err := proc.Process(context.Background(), table, domain.Options{})
	if err != nil {
		return fmt.Errorf("processing sample: %w", err)
	}
	printStats(ds)
	return nil
}

// generate builds a sinusoidal water level with Gaussian noise, a random area
// per day, and a uniform damage estimate.
func generate(days int, seed uint64) []sampleRow {
	src := rand.NewPCG(seed, seed)
	rng := rand.New(src)
	noise := distuv.Normal{Mu: 0, Sigma: 0.15, Src: src}
	damage := distuv.Uniform{Min: 0, Max: 1000, Src: src}

	rows := make([]sampleRow, days)
	for i := range rows {
		level := 1.5 + 0.6*math.Sin(float64(i)/30) + noise.Rand()
		rows[i] = sampleRow{
			Date:            startDate.AddDate(0, 0, i).Format(time.DateOnly),
			WaterLevel:      strconv.FormatFloat(round(level, 3), 'f', -1, 64),
			Barangay:        areas[rng.IntN(len(areas))],
			EstimatedDamage: strconv.FormatFloat(round(damage.Rand(), 2), 'f', -1, 64),
		}
	}
	return rows
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func writeCSV(path string, rows []sampleRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.fields()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(ds *domain.ProcessedDataset) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows read: %d, dropped: %d, records: %d\n", ds.RowsRead, ds.DroppedRows, len(ds.Records))
	fmt.Printf("Schema: date=%s water=%s area=%s damage=%v\n",
		ds.Schema.DateCol, ds.Schema.WaterCol, ds.Schema.AreaCol, ds.Schema.DamageCols)
	fmt.Printf("Floods: %d, outliers: %d\n", ds.FloodCount(), ds.OutlierCount())
	for _, y := range ds.Years() {
		fmt.Printf("  %d: floods=%d avg_water=%.4f damage=%.2f\n",
			y, ds.FloodsPerYear[y], ds.AvgWaterPerYear[y], sumDamage(ds.DamagePerYear[y]))
	}
	fmt.Println("Top affected areas:")
	for _, a := range ds.TopAffectedAreas {
		fmt.Printf("  %s: %d\n", a.Area, a.Count)
	}
}

func sumDamage(totals map[string]float64) float64 {
	var s float64
	for _, v := range totals {
		s += v
	}
	return s
}
