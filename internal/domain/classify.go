package domain

import (
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// truthyTokens is the fallback vocabulary for occurrence columns that are
// not plain booleans or numbers.
var truthyTokens = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "t": true}

// Classify scores every cleaned water level and derives outlier and flood
// flags. water must be aligned with frame and contain no gaps.
func Classify(frame Frame, water []float64, schema Schema, opts Options) []Record {
	zs := ZScores(water)

	var floods []bool
	if schema.FloodCol != "" {
		tokens := make([]string, frame.Len())
		for i, row := range frame.Rows {
			tokens[i] = row[schema.FloodCol]
		}
		floods = ParseFloodColumn(tokens)
	} else {
		floods = FloodHeuristic(water, zs, opts.FloodMultiplier(), opts.FloodZThresh())
	}

	records := make([]Record, frame.Len())
	for i := range records {
		r := Record{
			Timestamp: frame.Timestamps[i],
			Water:     water[i],
			ZScore:    zs[i],
			IsOutlier: math.Abs(zs[i]) > opts.OutlierThresh(),
			IsFlood:   floods[i],
			Year:      frame.Timestamps[i].Year(),
			Source:    frame.Rows[i],
		}
		if schema.AreaCol != "" {
			r.Area = frame.Rows[i][schema.AreaCol]
		}
		records[i] = r
	}
	return records
}

// ZScores standardizes values against their mean and population standard
// deviation. A constant (or empty) series scores 0 everywhere.
func ZScores(values []float64) []float64 {
	zs := make([]float64, len(values))
	if len(values) == 0 {
		return zs
	}
	mean, _ := stats.Mean(values)
	sd, _ := stats.StandardDeviationPopulation(values)
	if sd == 0 || !finite(sd) {
		return zs
	}
	for i, v := range values {
		zs[i] = (v - mean) / sd
	}
	return zs
}

// FloodHeuristic flags values at or above mean + multiplier*sample std, or
// whose |z| exceeds zThresh. The level rule needs at least two values.
func FloodHeuristic(values, zs []float64, multiplier, zThresh float64) []bool {
	out := make([]bool, len(values))
	threshold := math.NaN()
	if len(values) >= 2 {
		mean, _ := stats.Mean(values)
		sd, _ := stats.StandardDeviationSample(values)
		threshold = mean + multiplier*sd
	}
	for i, v := range values {
		out[i] = (!math.IsNaN(threshold) && v >= threshold) || math.Abs(zs[i]) > zThresh
	}
	return out
}

// ParseFloodColumn converts an occurrence column to booleans. Each non-blank
// token is first read as a boolean or a number (non-zero is true). If any
// token fails that, the whole column is instead matched case-insensitively
// against 1, true, yes, y, t. Blank tokens are false.
func ParseFloodColumn(tokens []string) []bool {
	out := make([]bool, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, ok := coerceBool(tok)
		if !ok {
			return parseTruthy(tokens)
		}
		out[i] = v
	}
	return out
}

func coerceBool(tok string) (bool, bool) {
	if b, err := strconv.ParseBool(tok); err == nil {
		return b, true
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil && !math.IsNaN(f) {
		return f != 0, true
	}
	return false, false
}

func parseTruthy(tokens []string) []bool {
	out := make([]bool, len(tokens))
	for i, tok := range tokens {
		out[i] = truthyTokens[strings.ToLower(strings.TrimSpace(tok))]
	}
	return out
}
