package domain

import (
	"fmt"
	"math"
)

// InterpMethod selects how missing water levels are filled.
type InterpMethod string

const (
	InterpLinear  InterpMethod = "linear"
	InterpTime    InterpMethod = "time"
	InterpPad     InterpMethod = "pad"
	InterpNearest InterpMethod = "nearest"
)

// InterpMethods lists the supported interpolation methods.
var InterpMethods = []InterpMethod{InterpLinear, InterpTime, InterpPad, InterpNearest}

// Options are the per-run overrides for processing. Empty column names mean
// "resolve automatically"; nil thresholds take the defaults, so an explicit 0
// is honoured.
type Options struct {
	DateCol    string   `json:"date_col,omitempty"`
	WaterCol   string   `json:"water_col,omitempty"`
	AreaCol    string   `json:"area_col,omitempty"`
	DamageCols []string `json:"damage_cols,omitempty"`

	InterpMethod             InterpMethod `json:"interp_method,omitempty"`
	ZScoreOutlierThresh      *float64     `json:"zscore_outlier_thresh,omitempty"`
	FloodZScoreThresh        *float64     `json:"flood_zscore_thresh,omitempty"`
	FloodThresholdMultiplier *float64     `json:"flood_threshold_multiplier,omitempty"`
}

// Default processing thresholds.
const (
	DefaultZScoreOutlierThresh      = 3.0
	DefaultFloodZScoreThresh        = 1.5
	DefaultFloodThresholdMultiplier = 1.0
)

// Float64 returns a pointer to v, for setting optional thresholds.
func Float64(v float64) *float64 { return &v }

// DefaultOptions returns the standard processing settings.
func DefaultOptions() Options {
	return Options{
		InterpMethod:             InterpLinear,
		ZScoreOutlierThresh:      Float64(DefaultZScoreOutlierThresh),
		FloodZScoreThresh:        Float64(DefaultFloodZScoreThresh),
		FloodThresholdMultiplier: Float64(DefaultFloodThresholdMultiplier),
	}
}

// WithDefaults fills unset thresholds and an empty method from
// DefaultOptions. Column overrides are left untouched.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.InterpMethod == "" {
		o.InterpMethod = d.InterpMethod
	}
	if o.ZScoreOutlierThresh == nil {
		o.ZScoreOutlierThresh = d.ZScoreOutlierThresh
	}
	if o.FloodZScoreThresh == nil {
		o.FloodZScoreThresh = d.FloodZScoreThresh
	}
	if o.FloodThresholdMultiplier == nil {
		o.FloodThresholdMultiplier = d.FloodThresholdMultiplier
	}
	return o
}

// OutlierThresh is the |z| above which a reading is an outlier.
func (o Options) OutlierThresh() float64 {
	return valueOr(o.ZScoreOutlierThresh, DefaultZScoreOutlierThresh)
}

// FloodZThresh is the |z| above which a reading counts as a flood.
func (o Options) FloodZThresh() float64 {
	return valueOr(o.FloodZScoreThresh, DefaultFloodZScoreThresh)
}

// FloodMultiplier scales the sample std added to the mean for the level rule.
func (o Options) FloodMultiplier() float64 {
	return valueOr(o.FloodThresholdMultiplier, DefaultFloodThresholdMultiplier)
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

// Validate checks the method and thresholds.
func (o Options) Validate() error {
	if !validInterpMethod(o.InterpMethod) {
		return fmt.Errorf("%w: unknown interpolation method %q", ErrInvalidOptions, o.InterpMethod)
	}
	if v := o.OutlierThresh(); !finite(v) || v < 0 {
		return fmt.Errorf("%w: zscore_outlier_thresh must be a non-negative number", ErrInvalidOptions)
	}
	if v := o.FloodZThresh(); !finite(v) || v < 0 {
		return fmt.Errorf("%w: flood_zscore_thresh must be a non-negative number", ErrInvalidOptions)
	}
	if !finite(o.FloodMultiplier()) {
		return fmt.Errorf("%w: flood_threshold_multiplier must be finite", ErrInvalidOptions)
	}
	return nil
}

func validInterpMethod(m InterpMethod) bool {
	for _, v := range InterpMethods {
		if m == v {
			return true
		}
	}
	return false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
