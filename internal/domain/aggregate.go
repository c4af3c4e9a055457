package domain

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// TopAreaLimit is the maximum length of the affected-area ranking.
const TopAreaLimit = 10

// YearlySummary holds the per-year flood counts and mean water levels.
type YearlySummary struct {
	FloodsPerYear   map[int]int
	AvgWaterPerYear map[int]float64
}

// SummarizeYears counts flood records and averages water level per calendar
// year. Years without floods appear with a zero count.
func SummarizeYears(records []Record) YearlySummary {
	floods := make(map[int]int)
	levels := make(map[int][]float64)
	for i := range records {
		y := records[i].Year
		if _, ok := floods[y]; !ok {
			floods[y] = 0
		}
		if records[i].IsFlood {
			floods[y]++
		}
		levels[y] = append(levels[y], records[i].Water)
	}

	avg := make(map[int]float64, len(levels))
	for y, vs := range levels {
		avg[y], _ = stats.Mean(vs)
	}
	return YearlySummary{FloodsPerYear: floods, AvgWaterPerYear: avg}
}

// RankAreas counts flood records per area and returns the top entries,
// highest count first. Ties are ordered by area name; blank areas are
// skipped.
func RankAreas(records []Record, limit int) []AreaCount {
	counts := make(map[string]int)
	for i := range records {
		if !records[i].IsFlood || records[i].Area == "" {
			continue
		}
		counts[records[i].Area]++
	}
	return RankCounts(counts, limit)
}

// RankCounts orders an area tally by count descending, then name ascending,
// and truncates it to limit entries.
func RankCounts(counts map[string]int, limit int) []AreaCount {
	ranked := make([]AreaCount, 0, len(counts))
	for area, n := range counts {
		ranked = append(ranked, AreaCount{Area: area, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Area < ranked[j].Area
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
