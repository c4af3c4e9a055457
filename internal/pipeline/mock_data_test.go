package pipeline_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/pipeline"
)

func TestProcessor_WithMockCSVData(t *testing.T) {
	table := readSampleTable(t)
	proc := pipeline.NewProcessor(nil, "", discardLogger())

	ds, err := proc.Process(context.Background(), table, domain.Options{})
	require.NoError(t, err)

	assert.Equal(t, 25, ds.RowsRead)
	assert.Equal(t, 1, ds.DroppedRows)
	require.Len(t, ds.Records, 24)

	assert.Equal(t, domain.Schema{
		DateCol:    "Date",
		WaterCol:   "WaterLevel_m",
		AreaCol:    "Barangay",
		DamageCols: []string{"Estimated_damage"},
	}, ds.Schema)
	assert.Equal(t, []string{"Date", "WaterLevel_m", "Barangay", "Estimated_damage"}, ds.Columns)

	if diff := cmp.Diff(map[int]int{2021: 1, 2022: 2}, ds.FloodsPerYear); diff != "" {
		t.Errorf("floods per year mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 16.0/12, ds.AvgWaterPerYear[2021], 1e-9)
	assert.InDelta(t, 20.0/12, ds.AvgWaterPerYear[2022], 1e-9)

	assert.Equal(t, []domain.AreaCount{
		{Area: "San Isidro", Count: 2},
		{Area: "Bagong Silang", Count: 1},
	}, ds.TopAffectedAreas)

	if diff := cmp.Diff(map[int]map[string]float64{
		2021: {"Estimated_damage": 26100},
		2022: {"Estimated_damage": 51000},
	}, ds.DamagePerYear); diff != "" {
		t.Errorf("damage per year mismatch (-want +got):\n%s", diff)
	}

	march := ds.Records[2]
	assert.Equal(t, time.Date(2021, time.March, 15, 0, 0, 0, 0, time.UTC), march.Timestamp)
	assert.InDelta(t, 1.0, march.Water, 1e-12, "blank level is interpolated")
	assert.Equal(t, []float64{100}, march.Damage)

	july := ds.Records[6]
	assert.True(t, july.IsFlood)
	assert.False(t, july.IsOutlier)
	assert.InDelta(t, 2.6458, july.ZScore, 1e-4)
	assert.Equal(t, 0, ds.OutlierCount())
}

// readSampleTable loads the checked-in sample dataset as a raw table.
func readSampleTable(t *testing.T) domain.RawTable {
	t.Helper()

	path := filepath.Join("..", "..", "data", "mock", "flood_sample.csv")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, lines)

	table := domain.RawTable{Columns: lines[0], Source: path}
	for _, line := range lines[1:] {
		row := make(domain.RawRow, len(line))
		for i, col := range table.Columns {
			row[col] = line[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
