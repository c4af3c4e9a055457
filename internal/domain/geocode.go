package domain

import (
	"context"
	"log/slog"
)

// GeocodeAreas returns a copy of areas with coordinates attached where the
// geocoder finds them. Lookup failures are logged and leave the entry as is,
// so a provider outage never fails processing.
func GeocodeAreas(ctx context.Context, areas []AreaCount, region string, geocoder Geocoder, logger *slog.Logger) []AreaCount {
	if geocoder == nil || len(areas) == 0 {
		return areas
	}

	out := make([]AreaCount, len(areas))
	copy(out, areas)
	for i := range out {
		if ctx.Err() != nil {
			return out
		}
		result, err := geocoder.ForwardGeocode(ctx, out[i].Area, region)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"area", out[i].Area,
				"region", region,
				"error", err,
			)
			continue
		}
		if result.Lat == 0 && result.Lon == 0 {
			continue
		}
		out[i].Geo = &Geo{Lat: result.Lat, Lon: result.Lon}
		out[i].FormattedAddress = result.FormattedAddress
		out[i].GeoConfidence = result.Confidence
	}
	return out
}
