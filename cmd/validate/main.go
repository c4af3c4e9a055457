// Command validate cross-checks the CSV artifacts written by a processing run:
// the processed table, the yearly summary, the area ranking, the damage
// totals, and (when present) the forecast series. It verifies that each
// aggregate agrees with the processed rows it was derived from.
//
// Usage:
//
//	go run ./cmd/validate -dir out -area-col Barangay
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/export"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// Trailing columns every processed row carries.
var derivedColumns = []string{"zscore_water", "is_outlier_water", "is_flood", "year"}

// floatTolerance absorbs formatting round trips of summed damage values.
const floatTolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "out", "directory containing the exported artifacts")
	areaCol := flag.String("area-col", "", "area column of the processed table (enables per-area ranking checks)")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir, *areaCol); code != 0 {
		os.Exit(code)
	}
}

func run(dir, areaCol string) int {
	fmt.Println("=== Flood Artifact Validation ===")
	fmt.Println()

	processed, err := loadTable(filepath.Join(dir, fileName("processed")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load processed table: %v\n", err)
		return 1
	}
	summary, err := loadTable(filepath.Join(dir, fileName("summary")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load summary: %v\n", err)
		return 1
	}
	ranking, err := loadOptional(filepath.Join(dir, fileName("top_affected")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load ranking: %v\n", err)
		return 1
	}
	damage, err := loadOptional(filepath.Join(dir, fileName("damage")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load damage: %v\n", err)
		return 1
	}
	fc, err := loadOptional(filepath.Join(dir, export.ForecastFileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load forecast: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateProcessed(processed),
		validateSummary(summary, processed),
		validateRanking(ranking, processed, areaCol),
		validateDamage(damage, processed, summary),
		validateForecast(fc),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d processed, %d summary years\n", len(processed.rows), len(summary.rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func fileName(artifact string) string {
	a, _ := export.Lookup(artifact)
	return a.FileName
}

// ── Data loading ──

// table is a loaded CSV artifact; nil when an optional file is absent.
type table struct {
	header []string
	rows   []map[string]string
}

func loadTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no header in %s", path)
	}

	t := &table{header: all[0]}
	for _, rec := range all[1:] {
		row := make(map[string]string, len(t.header))
		for j, h := range t.header {
			if j < len(rec) {
				row[h] = rec[j]
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func loadOptional(path string) (*table, error) {
	t, err := loadTable(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return t, err
}

// ── Phases ──

func validateProcessed(t *table) *phase {
	p := &phase{name: "Processed table integrity"}
	if len(t.header) < len(derivedColumns) {
		p.errorf("header has %d columns, need at least %d", len(t.header), len(derivedColumns))
		return p
	}
	tail := t.header[len(t.header)-len(derivedColumns):]
	for i, c := range derivedColumns {
		if tail[i] != c {
			p.errorf("derived column %d: got %q, want %q", i, tail[i], c)
		}
	}
	for i, row := range t.rows {
		line := i + 2
		if _, err := strconv.ParseBool(row["is_flood"]); err != nil {
			p.errorf("line %d: is_flood %q is not a boolean", line, row["is_flood"])
		}
		if _, err := strconv.ParseBool(row["is_outlier_water"]); err != nil {
			p.errorf("line %d: is_outlier_water %q is not a boolean", line, row["is_outlier_water"])
		}
		z, err := strconv.ParseFloat(row["zscore_water"], 64)
		if err != nil || math.IsNaN(z) || math.IsInf(z, 0) {
			p.errorf("line %d: zscore_water %q is not finite", line, row["zscore_water"])
		}
		if _, err := strconv.Atoi(row["year"]); err != nil {
			p.errorf("line %d: year %q is not an integer", line, row["year"])
		}
	}
	return p
}

func validateSummary(summary, processed *table) *phase {
	p := &phase{name: "Yearly summary vs processed rows"}
	want := floodsPerYear(processed)

	got := make(map[string]int)
	total := 0
	for _, row := range summary.rows {
		n, err := strconv.Atoi(row["floods_per_year"])
		if err != nil {
			p.errorf("year %s: floods_per_year %q is not an integer", row["year"], row["floods_per_year"])
			continue
		}
		got[row["year"]] = n
		total += n
	}
	for year, n := range want {
		if got[year] != n {
			p.errorf("year %s: summary reports %d floods, processed rows have %d", year, got[year], n)
		}
	}
	if len(got) != len(want) {
		p.errorf("summary has %d years, processed rows span %d", len(got), len(want))
	}
	if flagged := countTrue(processed, "is_flood"); total != flagged {
		p.errorf("flood total %d does not match %d flagged rows", total, flagged)
	}
	return p
}

func validateRanking(ranking, processed *table, areaCol string) *phase {
	p := &phase{name: "Top affected areas ranking"}
	if ranking == nil {
		fmt.Println("  (no ranking artifact, skipping)")
		return p
	}
	if len(ranking.rows) > domain.TopAreaLimit {
		p.errorf("ranking has %d entries, limit is %d", len(ranking.rows), domain.TopAreaLimit)
	}

	var perArea map[string]int
	if areaCol != "" {
		perArea = make(map[string]int)
		for _, row := range processed.rows {
			if row["is_flood"] == "true" && row[areaCol] != "" {
				perArea[row[areaCol]]++
			}
		}
	}

	prevCount, prevArea := math.MaxInt, ""
	for i, row := range ranking.rows {
		n, err := strconv.Atoi(row["count"])
		if err != nil {
			p.errorf("entry %d: count %q is not an integer", i+1, row["count"])
			continue
		}
		area := row["area"]
		if n > prevCount || (n == prevCount && area < prevArea) {
			p.errorf("entry %d (%s, %d) is out of order after (%s, %d)", i+1, area, n, prevArea, prevCount)
		}
		if perArea != nil && perArea[area] != n {
			p.errorf("area %s: ranking reports %d floods, processed rows have %d", area, n, perArea[area])
		}
		prevCount, prevArea = n, area
	}
	return p
}

func validateDamage(damage, processed, summary *table) *phase {
	p := &phase{name: "Damage totals vs processed rows"}
	if damage == nil {
		fmt.Println("  (no damage artifact, skipping)")
		return p
	}

	years := make(map[string]bool, len(summary.rows))
	for _, row := range summary.rows {
		years[row["year"]] = true
	}

	cols := damage.header[1:]
	want := make(map[string]map[string]float64)
	for _, row := range processed.rows {
		y := row["year"]
		if want[y] == nil {
			want[y] = make(map[string]float64)
		}
		for _, c := range cols {
			v, err := strconv.ParseFloat(row[c], 64)
			if err != nil {
				p.errorf("year %s: processed %s value %q is not numeric", y, c, row[c])
				continue
			}
			want[y][c] += v
		}
	}

	for _, row := range damage.rows {
		y := row["year"]
		if !years[y] {
			p.errorf("damage year %s is not in the summary", y)
		}
		for _, c := range cols {
			got, err := strconv.ParseFloat(row[c], 64)
			if err != nil {
				p.errorf("year %s: %s total %q is not numeric", y, c, row[c])
				continue
			}
			if math.Abs(got-want[y][c]) > floatTolerance*math.Max(1, math.Abs(got)) {
				p.errorf("year %s: %s total %v, processed rows sum to %v", y, c, got, want[y][c])
			}
		}
	}
	return p
}

func validateForecast(fc *table) *phase {
	p := &phase{name: "Forecast series"}
	if fc == nil {
		fmt.Println("  (no forecast artifact, skipping)")
		return p
	}
	counts := make(map[string]int)
	for i, row := range fc.rows {
		switch row["series"] {
		case "train", "test", "predicted", "future":
			counts[row["series"]]++
		default:
			p.errorf("line %d: unknown series %q", i+2, row["series"])
		}
		if v, err := strconv.ParseFloat(row["value"], 64); err != nil || math.IsNaN(v) {
			p.errorf("line %d: value %q is not a number", i+2, row["value"])
		}
	}
	if counts["predicted"] != counts["test"] {
		p.errorf("%d predictions for %d test months", counts["predicted"], counts["test"])
	}
	if counts["train"] == 0 || counts["test"] == 0 {
		p.errorf("train (%d) and test (%d) must both be non-empty", counts["train"], counts["test"])
	}
	return p
}

// ── Helpers ──

func floodsPerYear(t *table) map[string]int {
	out := make(map[string]int)
	for _, row := range t.rows {
		y := row["year"]
		if _, ok := out[y]; !ok {
			out[y] = 0
		}
		if row["is_flood"] == "true" {
			out[y]++
		}
	}
	return out
}

func countTrue(t *table, col string) int {
	n := 0
	for _, row := range t.rows {
		if row[col] == "true" {
			n++
		}
	}
	return n
}
