package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZScores(t *testing.T) {
	zs := ZScores([]float64{1, 1, 1, 1, 10})

	// mean 2.8, population std 3.6
	assert.InDelta(t, -0.5, zs[0], 1e-9)
	assert.InDelta(t, 2.0, zs[4], 1e-9)
}

func TestZScores_ConstantSeriesIsZero(t *testing.T) {
	zs := ZScores([]float64{2, 2, 2})
	for _, z := range zs {
		assert.False(t, math.IsNaN(z))
		assert.Zero(t, z)
	}
	assert.Empty(t, ZScores(nil))
}

func TestFloodHeuristic(t *testing.T) {
	values := []float64{1, 1, 1, 1, 10}
	zs := ZScores(values)

	got := FloodHeuristic(values, zs, 1.0, 1.5)

	assert.Equal(t, []bool{false, false, false, false, true}, got)
}

func TestFloodHeuristic_LevelRuleAlone(t *testing.T) {
	values := []float64{1, 1, 1, 1, 10}
	zs := ZScores(values)

	// A huge z threshold leaves only the level rule: 10 >= 2.8 + 4.025.
	got := FloodHeuristic(values, zs, 1.0, 100)

	assert.Equal(t, []bool{false, false, false, false, true}, got)
}

func TestFloodHeuristic_SingleValueSkipsLevelRule(t *testing.T) {
	got := FloodHeuristic([]float64{5}, []float64{0}, 1.0, 1.5)
	assert.Equal(t, []bool{false}, got)
}

func TestParseFloodColumn(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []bool
	}{
		{
			name:   "mixed vocabulary uses truthy set",
			tokens: []string{"Yes", "1", "TRUE", "no", "0"},
			want:   []bool{true, true, true, false, false},
		},
		{
			name:   "plain booleans",
			tokens: []string{"true", "false", "T", "F"},
			want:   []bool{true, false, true, false},
		},
		{
			name:   "numeric non-zero is true",
			tokens: []string{"2", "0", "1"},
			want:   []bool{true, false, true},
		},
		{
			name:   "blank is false",
			tokens: []string{"", "1", " "},
			want:   []bool{false, true, false},
		},
		{
			name:   "truthy set is case insensitive",
			tokens: []string{"Y", "n", "YES", "maybe"},
			want:   []bool{true, false, true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFloodColumn(tt.tokens))
		})
	}
}

func TestClassify(t *testing.T) {
	frame := frameOf("wl", "1", "1", "1", "1", "10")
	for i := range frame.Rows {
		frame.Rows[i]["Brgy"] = " Brgy A "
	}
	opts := DefaultOptions()

	records := Classify(frame, []float64{1, 1, 1, 1, 10}, Schema{WaterCol: "wl", AreaCol: "Brgy"}, opts)

	require.Len(t, records, 5)
	assert.True(t, records[4].IsFlood)
	assert.False(t, records[0].IsFlood)
	assert.False(t, records[4].IsOutlier, "z of 2 is under the outlier threshold")
	assert.Equal(t, 2020, records[0].Year)
	assert.Equal(t, " Brgy A ", records[0].Area, "area names are grouped by their raw cell value")
	assert.Equal(t, "10", records[4].Source["wl"])
}

func TestClassify_ZeroThresholdsAreHonoured(t *testing.T) {
	frame := frameOf("wl", "1", "2", "3", "4", "10")
	water := []float64{1, 2, 3, 4, 10}
	opts := Options{
		ZScoreOutlierThresh:      Float64(0),
		FloodZScoreThresh:        Float64(100),
		FloodThresholdMultiplier: Float64(0),
	}.WithDefaults()

	records := Classify(frame, water, Schema{WaterCol: "wl"}, opts)

	// mean is 4, so a zero multiplier floods everything at or above it.
	floods := make([]bool, len(records))
	outliers := make([]bool, len(records))
	for i, r := range records {
		floods[i] = r.IsFlood
		outliers[i] = r.IsOutlier
	}
	assert.Equal(t, []bool{false, false, false, true, true}, floods)
	assert.Equal(t, []bool{true, true, true, false, true}, outliers, "any non-zero z exceeds a zero threshold")
}

func TestClassify_ExplicitFloodColumn(t *testing.T) {
	frame := frameOf("wl", "1", "1", "1", "1", "10")
	flags := []string{"yes", "no", "no", "no", "no"}
	for i := range frame.Rows {
		frame.Rows[i]["Flooded"] = flags[i]
	}

	records := Classify(frame, []float64{1, 1, 1, 1, 10}, Schema{WaterCol: "wl", FloodCol: "Flooded"}, DefaultOptions())

	assert.True(t, records[0].IsFlood)
	assert.False(t, records[4].IsFlood, "explicit column overrides heuristics")
}

func TestClassify_Outlier(t *testing.T) {
	values := make([]float64, 20)
	cells := make([]string, 20)
	for i := range values {
		values[i] = 1
		cells[i] = "1"
	}
	values[19] = 50
	cells[19] = "50"

	records := Classify(frameOf("wl", cells...), values, Schema{WaterCol: "wl"}, DefaultOptions())

	assert.True(t, records[19].IsOutlier)
	assert.False(t, records[0].IsOutlier)
}
