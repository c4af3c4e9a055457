package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	results map[string]GeocodingResult
	err     error
	calls   []string
	regions []string
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, name, region string) (GeocodingResult, error) {
	m.calls = append(m.calls, name)
	m.regions = append(m.regions, region)
	if m.err != nil {
		return GeocodingResult{}, m.err
	}
	return m.results[name], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestGeocodeAreas_NilGeocoder(t *testing.T) {
	areas := []AreaCount{{Area: "Brgy A", Count: 3}}

	result := GeocodeAreas(context.Background(), areas, "ph", nil, discardLogger())

	assert.Equal(t, areas, result)
	assert.Nil(t, result[0].Geo)
}

func TestGeocodeAreas_AttachesCoordinates(t *testing.T) {
	geo := &mockGeocoder{results: map[string]GeocodingResult{
		"Brgy A": {Lat: 14.6, Lon: 121.0, FormattedAddress: "Brgy A, Manila", Confidence: 0.9},
	}}
	areas := []AreaCount{{Area: "Brgy A", Count: 3}, {Area: "Brgy B", Count: 1}}

	result := GeocodeAreas(context.Background(), areas, "ph", geo, discardLogger())

	require.Len(t, result, 2)
	require.NotNil(t, result[0].Geo)
	assert.Equal(t, 14.6, result[0].Geo.Lat)
	assert.Equal(t, 121.0, result[0].Geo.Lon)
	assert.Equal(t, "Brgy A, Manila", result[0].FormattedAddress)
	assert.Equal(t, 0.9, result[0].GeoConfidence)
	assert.Nil(t, result[1].Geo, "zero result leaves entry untouched")
	assert.Equal(t, []string{"Brgy A", "Brgy B"}, geo.calls)
	assert.Equal(t, []string{"ph", "ph"}, geo.regions)
}

func TestGeocodeAreas_DoesNotMutateInput(t *testing.T) {
	geo := &mockGeocoder{results: map[string]GeocodingResult{"Brgy A": {Lat: 1, Lon: 2}}}
	areas := []AreaCount{{Area: "Brgy A", Count: 3}}

	_ = GeocodeAreas(context.Background(), areas, "", geo, discardLogger())

	assert.Nil(t, areas[0].Geo)
}

func TestGeocodeAreas_ErrorDegradesGracefully(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("API timeout")}
	areas := []AreaCount{{Area: "Brgy A", Count: 3}, {Area: "Brgy B", Count: 2}}

	result := GeocodeAreas(context.Background(), areas, "ph", geo, discardLogger())

	assert.Len(t, geo.calls, 2)
	assert.Equal(t, areas, result)
}

func TestGeocodeAreas_StopsOnCancelledContext(t *testing.T) {
	geo := &mockGeocoder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := GeocodeAreas(ctx, []AreaCount{{Area: "Brgy A", Count: 1}}, "ph", geo, discardLogger())

	assert.Empty(t, geo.calls)
	assert.Len(t, result, 1)
}
