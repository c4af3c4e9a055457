package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// Horizon limits for extending a forecast past the observed months.
const (
	DefaultHorizon = 6
	MaxHorizon     = 60
)

// DefaultTrainRatio is the share of months used for fitting.
const DefaultTrainRatio = 0.8

// Options configure one forecast run. Unset fields take the defaults; a
// Horizon of 0 skips the future extension.
type Options struct {
	Order      *Order         `json:"order,omitempty"`
	Seasonal   *SeasonalOrder `json:"seasonal_order,omitempty"`
	TrainRatio float64        `json:"train_ratio,omitempty"`
	Horizon    *int           `json:"horizon,omitempty"`
}

// Int returns a pointer to n, for setting Options.Horizon.
func Int(n int) *int { return &n }

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.Order == nil {
		d := DefaultOrder
		o.Order = &d
	}
	if o.Seasonal == nil {
		d := DefaultSeasonalOrder
		o.Seasonal = &d
	}
	if o.TrainRatio == 0 {
		o.TrainRatio = DefaultTrainRatio
	}
	if o.Horizon == nil {
		o.Horizon = Int(DefaultHorizon)
	}
	return o
}

// Validate checks the orders and bounds. Call after WithDefaults.
func (o Options) Validate() error {
	if err := o.Order.Validate(); err != nil {
		return err
	}
	if err := o.Seasonal.Validate(); err != nil {
		return err
	}
	if !(o.TrainRatio > 0 && o.TrainRatio < 1) {
		return fmt.Errorf("%w: train_ratio %v must be between 0 and 1", domain.ErrInvalidOptions, o.TrainRatio)
	}
	if h := *o.Horizon; h < 0 || h > MaxHorizon {
		return fmt.Errorf("%w: horizon %d must be between 0 and %d", domain.ErrInvalidOptions, h, MaxHorizon)
	}
	return nil
}

// Evaluation is the outcome of fitting on the training months and scoring the
// held-out months.
type Evaluation struct {
	Model       string  `json:"model"`
	TrainMonths int     `json:"train_months"`
	TestMonths  int     `json:"test_months"`
	Train       []Point `json:"train"`
	Test        []Point `json:"test"`
	Predictions []Point `json:"predictions"`
	MAE         float64 `json:"mae"`
	MSE         float64 `json:"mse"`
	AIC         float64 `json:"aic"`
	Future      []Point `json:"future,omitempty"`
}

// Run resamples the series to months, fits the model on the training head,
// scores static one-step predictions on the test tail, and extends the full
// series by opts.Horizon months when that is positive.
func Run(ctx context.Context, ts []time.Time, vs []float64, opts Options) (Evaluation, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return Evaluation{}, err
	}

	series := ResampleMonthly(ts, vs)
	train, test, err := Split(series, opts.TrainRatio)
	if err != nil {
		return Evaluation{}, err
	}

	model, err := Fit(ctx, values(train), *opts.Order, *opts.Seasonal)
	if err != nil {
		return Evaluation{}, err
	}

	full := values(series)
	preds, err := model.PredictInSample(full, len(train))
	if err != nil {
		return Evaluation{}, &domain.FitError{Model: model.Name(), Cause: err}
	}
	actual := values(test)

	ev := Evaluation{
		Model:       model.Name(),
		TrainMonths: len(train),
		TestMonths:  len(test),
		Train:       train,
		Test:        test,
		Predictions: label(test, preds),
		MAE:         MAE(actual, preds),
		MSE:         MSE(actual, preds),
		AIC:         model.AIC(),
	}

	horizon := *opts.Horizon
	if horizon == 0 {
		return ev, nil
	}
	future := model.Forecast(full, horizon)
	months := FutureMonths(series[len(series)-1].Month, horizon)
	for i, v := range future {
		ev.Future = append(ev.Future, Point{Month: months[i], Value: v})
	}
	return ev, nil
}

// MAE is the mean absolute error.
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}
	return floats.Distance(actual, predicted, 1) / float64(len(actual))
}

// MSE is the mean squared error.
func MSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}
	d := floats.Distance(actual, predicted, 2)
	return d * d / float64(len(actual))
}

func label(like []Point, vs []float64) []Point {
	out := make([]Point, len(vs))
	for i, v := range vs {
		out[i] = Point{Month: like[i].Month, Value: v}
	}
	return out
}
