package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

func TestDecodeRow(t *testing.T) {
	columns, row, err := decodeRow([]byte(`{"Date":"2021-01-15","WaterLevel_m":1.50,"Barangay":"Tumana","Flooded":true,"Remarks":null}`))

	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "WaterLevel_m", "Barangay", "Flooded", "Remarks"}, columns)
	assert.Equal(t, domain.RawRow{
		"Date":         "2021-01-15",
		"WaterLevel_m": "1.50",
		"Barangay":     "Tumana",
		"Flooded":      "true",
		"Remarks":      "",
	}, row)
}

func TestDecodeRow_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":     `not-json{{{`,
		"array":        `[1,2,3]`,
		"nested":       `{"Date":"2021-01-15","meta":{"a":1}}`,
		"nested array": `{"levels":[1,2]}`,
		"truncated":    `{"Date":"2021-01-15"`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := decodeRow([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestSerializeRecord(t *testing.T) {
	ts := time.Date(2022, 7, 15, 0, 0, 0, 0, time.UTC)
	rec := domain.Record{
		Timestamp: ts, Year: 2022, Water: 5.25, ZScore: 2.5, IsFlood: true,
		Area: "San Isidro", Damage: []float64{25000},
	}

	msg, err := serializeRecord(rec, []string{"Estimated_damage"})
	require.NoError(t, err)

	assert.Equal(t, []byte("2022"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, []byte(KindRecord), msg.Headers[0].Value)

	var got RecordMessage
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ts, got.Timestamp)
	assert.InDelta(t, 5.25, got.Water, 0)
	assert.True(t, got.IsFlood)
	assert.Equal(t, map[string]float64{"Estimated_damage": 25000}, got.Damage)
	assert.Contains(t, string(msg.Value), `"is_outlier_water":false`)
}

func TestSerializeDataset(t *testing.T) {
	processedAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	ds := &domain.ProcessedDataset{
		Records: []domain.Record{
			{Timestamp: time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC), Year: 2021, Water: 1},
			{Timestamp: time.Date(2021, 2, 15, 0, 0, 0, 0, time.UTC), Year: 2021, Water: 2},
		},
		Schema:          domain.Schema{DateCol: "Date", WaterCol: "WaterLevel_m"},
		FloodsPerYear:   map[int]int{2021: 0},
		AvgWaterPerYear: map[int]float64{2021: 1.5},
		ProcessedAt:     processedAt,
	}

	msgs, err := serializeDataset(ds)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	summary := msgs[2]
	assert.Equal(t, []byte(KindSummary), summary.Key)
	headers := map[string]string{}
	for _, h := range summary.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, KindSummary, headers["kind"])
	assert.Equal(t, processedAt.Format(time.RFC3339), headers["processed_at"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(summary.Value, &decoded))
	assert.Equal(t, map[string]any{"2021": 1.5}, decoded["avg_water_per_year"])
	assert.NotContains(t, decoded, "records")
}

func TestRetainFailed(t *testing.T) {
	msgs := []kafkago.Message{{Key: []byte("a")}, {Key: []byte("b")}, {Key: []byte("c")}}

	t.Run("partial write", func(t *testing.T) {
		err := kafkago.WriteErrors{nil, errors.New("leader not available"), nil}
		got := retainFailed(msgs, err)
		require.Len(t, got, 1)
		assert.Equal(t, []byte("b"), got[0].Key)
	})

	t.Run("whole batch failure", func(t *testing.T) {
		got := retainFailed(msgs, errors.New("dial tcp: connection refused"))
		assert.Len(t, got, 3)
	})
}
