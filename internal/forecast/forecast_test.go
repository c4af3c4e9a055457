package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// periodicSeries returns n month-end timestamps from Jan 2019 with a
// noise-free 12-month cycle around 10.
func periodicSeries(n int) ([]time.Time, []float64) {
	ts := make([]time.Time, n)
	vs := make([]float64, n)
	start := time.Date(2019, time.January, 15, 0, 0, 0, 0, time.UTC)
	for i := range ts {
		ts[i] = start.AddDate(0, i, 0)
		vs[i] = 10 + 2*math.Sin(2*math.Pi*float64(i)/12) + math.Cos(4*math.Pi*float64(i)/12)
	}
	return ts, vs
}

func TestMonthEnd(t *testing.T) {
	assert.Equal(t, time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC), MonthEnd(time.Date(2020, 2, 3, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), MonthEnd(time.Date(2021, 12, 31, 23, 59, 0, 0, time.UTC)))
}

func TestFutureMonths(t *testing.T) {
	got := FutureMonths(time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, []time.Time{
		time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 3, 31, 0, 0, 0, 0, time.UTC),
	}, got)
}

func TestResampleMonthly(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2020, m, day, 0, 0, 0, 0, time.UTC) }
	ts := []time.Time{d(1, 5), d(1, 20), d(3, 1), d(4, 30)}
	vs := []float64{1, 3, 10, math.NaN()}

	got := ResampleMonthly(ts, vs)

	require.Len(t, got, 4)
	assert.Equal(t, MonthEnd(d(1, 1)), got[0].Month)
	assert.Equal(t, 2.0, got[0].Value)
	assert.Equal(t, 2.0, got[1].Value, "empty February carries January forward")
	assert.Equal(t, 10.0, got[2].Value)
	assert.Equal(t, 10.0, got[3].Value, "April with only NaN carries March forward")
	assert.Nil(t, ResampleMonthly(nil, nil))
}

func TestSplit(t *testing.T) {
	t.Run("eleven points are insufficient", func(t *testing.T) {
		_, _, err := Split(make([]Point, 11), 0.8)
		var ie *domain.InsufficientDataError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, 11, ie.Have)
		assert.Equal(t, 12, ie.Need)
	})

	t.Run("twenty four points at 0.8", func(t *testing.T) {
		train, test, err := Split(make([]Point, 24), 0.8)
		require.NoError(t, err)
		assert.Len(t, train, 19)
		assert.Len(t, test, 5)
	})

	t.Run("ratio out of range", func(t *testing.T) {
		for _, r := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
			_, _, err := Split(make([]Point, 24), r)
			assert.ErrorIs(t, err, domain.ErrInvalidOptions, "ratio %v", r)
		}
	})

	t.Run("ratio leaving empty train slice", func(t *testing.T) {
		_, _, err := Split(make([]Point, 12), 0.05)
		assert.ErrorIs(t, err, domain.ErrInvalidOptions)
	})
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("1, 1,2")
	require.NoError(t, err)
	assert.Equal(t, Order{P: 1, D: 1, Q: 2}, o)

	s, err := ParseSeasonalOrder("(1,0,1,12)")
	require.NoError(t, err)
	assert.Equal(t, SeasonalOrder{P: 1, D: 0, Q: 1, S: 12}, s)

	_, err = ParseOrder("1,0")
	assert.ErrorIs(t, err, domain.ErrInvalidOptions)
	_, err = ParseSeasonalOrder("a,b,c,d")
	assert.ErrorIs(t, err, domain.ErrInvalidOptions)
}

func TestOrderValidate(t *testing.T) {
	assert.NoError(t, DefaultOrder.Validate())
	assert.NoError(t, DefaultSeasonalOrder.Validate())
	assert.NoError(t, SeasonalOrder{}.Validate(), "no seasonal part needs no period")
	assert.Error(t, Order{P: -1}.Validate())
	assert.Error(t, Order{P: 9}.Validate())
	assert.Error(t, SeasonalOrder{P: 1, S: 1}.Validate())
}

func TestPolynomials(t *testing.T) {
	m := &Model{order: Order{P: 1, Q: 1}, seasonal: SeasonalOrder{P: 1, Q: 1, S: 4}}

	ar, ma := m.polynomials([]float64{0.5, 0.2, 0.3, 0.1})

	// (1 - 0.5B)(1 - 0.2B^4) = 1 - 0.5B - 0.2B^4 + 0.1B^5
	assert.InDeltaSlice(t, []float64{0.5, 0, 0, 0.2, -0.1}, ar, 1e-12)
	// (1 + 0.3B)(1 + 0.1B^4) = 1 + 0.3B + 0.1B^4 + 0.03B^5
	assert.InDeltaSlice(t, []float64{0.3, 0, 0, 0.1, 0.03}, ma, 1e-12)
}

func TestDifferencing(t *testing.T) {
	c := lagCoefficients(differencingPolynomial(1, 0, 0))
	assert.Equal(t, []float64{1}, c)

	w := difference([]float64{1, 3, 6, 10}, c)
	assert.Equal(t, []float64{2, 3, 4}, w)

	c = lagCoefficients(differencingPolynomial(1, 1, 2))
	// (1-B)(1-B^2) = 1 - B - B^2 + B^3
	assert.Equal(t, []float64{1, 1, -1}, c)
}

func TestFit_SeasonalDifferencePredictsPeriodicSeriesExactly(t *testing.T) {
	_, vs := periodicSeries(36)

	m, err := Fit(context.Background(), vs[:28], Order{}, SeasonalOrder{D: 1, S: 12})
	require.NoError(t, err)
	assert.Empty(t, m.Params())
	assert.False(t, math.IsInf(m.AIC(), 0))

	preds, err := m.PredictInSample(vs, 28)
	require.NoError(t, err)
	assert.InDeltaSlice(t, vs[28:], preds, 1e-9)

	future := m.Forecast(vs, 12)
	assert.InDeltaSlice(t, vs[24:36], future, 1e-9)
}

func TestRun_SeasonalAREvaluatesNearZero(t *testing.T) {
	ts, vs := periodicSeries(36)
	order := Order{}
	seasonal := SeasonalOrder{P: 1, S: 12}

	ev, err := Run(context.Background(), ts, vs, Options{Order: &order, Seasonal: &seasonal})

	require.NoError(t, err)
	assert.Equal(t, 28, ev.TrainMonths)
	assert.Equal(t, 8, ev.TestMonths)
	assert.Len(t, ev.Predictions, 8)
	assert.InDelta(t, 0, ev.MAE, 1e-3)
	assert.InDelta(t, 0, ev.MSE, 1e-6)
	assert.Equal(t, "SARIMA(0,0,0)(1,0,0,12)", ev.Model)
	require.Len(t, ev.Future, DefaultHorizon)
	assert.Equal(t, time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC), ev.Future[0].Month)
	assert.Equal(t, ev.Test[0].Month, ev.Predictions[0].Month)
}

func TestRun_DefaultModel(t *testing.T) {
	ts, vs := periodicSeries(48)

	ev, err := Run(context.Background(), ts, vs, Options{Horizon: Int(3)})

	require.NoError(t, err)
	assert.Equal(t, "SARIMA(1,0,1)(1,0,1,12)", ev.Model)
	assert.Len(t, ev.Future, 3)
	assert.False(t, math.IsNaN(ev.MAE))
	assert.False(t, math.IsNaN(ev.AIC))
}

func TestRun_InsufficientMonths(t *testing.T) {
	ts, vs := periodicSeries(11)

	_, err := Run(context.Background(), ts, vs, Options{})

	var ie *domain.InsufficientDataError
	require.ErrorAs(t, err, &ie)
}

func TestRun_DefaultModelFitsShortSeries(t *testing.T) {
	for _, n := range []int{12, 15, 18, 21, 22} {
		t.Run(fmt.Sprintf("%d months", n), func(t *testing.T) {
			ts, vs := periodicSeries(n)

			ev, err := Run(context.Background(), ts, vs, Options{})

			require.NoError(t, err)
			assert.Equal(t, n, ev.TrainMonths+ev.TestMonths)
			assert.Len(t, ev.Predictions, ev.TestMonths)
			assert.Len(t, ev.Future, DefaultHorizon)
			assert.False(t, math.IsNaN(ev.MAE))
		})
	}
}

func TestFit_UsesEveryDifferencedObservation(t *testing.T) {
	_, vs := periodicSeries(12)

	m, err := Fit(context.Background(), vs[:9], DefaultOrder, DefaultSeasonalOrder)

	require.NoError(t, err)
	assert.Equal(t, 9, m.Nobs(), "no observations are dropped for the seasonal lags")
	assert.Len(t, m.Params(), 4)
	assert.False(t, math.IsNaN(m.AIC()))
}

func TestFit_TooFewObservationsForModel(t *testing.T) {
	_, vs := periodicSeries(4)

	_, err := Fit(context.Background(), vs, DefaultOrder, DefaultSeasonalOrder)

	var fe *domain.FitError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "SARIMA(1,0,1)(1,0,1,12)")
	assert.Contains(t, fe.Error(), "4 observations after differencing, need more than 4")
}

func TestFit_DifferencingConsumesSeries(t *testing.T) {
	_, vs := periodicSeries(12)

	_, err := Fit(context.Background(), vs, Order{}, SeasonalOrder{D: 1, S: 12})

	var fe *domain.FitError
	require.ErrorAs(t, err, &fe)
}

func TestResiduals_ZeroPresample(t *testing.T) {
	// AR(1) with phi 0.5: e0 = w0, then e_t = w_t - 0.5 w_{t-1}.
	e := residuals([]float64{2, 3, 4}, []float64{0.5}, nil)
	assert.InDeltaSlice(t, []float64{2, 2, 2.5}, e, 1e-12)

	// MA(1) with theta 0.5: e_t = w_t - 0.5 e_{t-1}.
	e = residuals([]float64{2, 3, 4}, nil, []float64{0.5})
	assert.InDeltaSlice(t, []float64{2, 2, 3}, e, 1e-12)
}

func TestRun_InvalidHorizon(t *testing.T) {
	ts, vs := periodicSeries(24)

	for _, h := range []int{-1, MaxHorizon + 1} {
		_, err := Run(context.Background(), ts, vs, Options{Horizon: Int(h)})
		assert.ErrorIs(t, err, domain.ErrInvalidOptions, "horizon %d", h)
	}
}

func TestRun_ZeroHorizonSkipsFuture(t *testing.T) {
	ts, vs := periodicSeries(24)

	ev, err := Run(context.Background(), ts, vs, Options{Horizon: Int(0)})

	require.NoError(t, err)
	assert.Empty(t, ev.Future)
	assert.Len(t, ev.Predictions, ev.TestMonths)
}

func TestOptions_WithDefaultsHorizon(t *testing.T) {
	assert.Equal(t, DefaultHorizon, *Options{}.WithDefaults().Horizon)
	assert.Equal(t, 0, *Options{Horizon: Int(0)}.WithDefaults().Horizon)
}

func TestFit_Cancelled(t *testing.T) {
	_, vs := periodicSeries(36)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fit(ctx, vs, DefaultOrder, DefaultSeasonalOrder)

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMetrics(t *testing.T) {
	actual := []float64{1, 2, 3}
	pred := []float64{2, 2, 1}
	assert.InDelta(t, 1.0, MAE(actual, pred), 1e-12)
	assert.InDelta(t, 5.0/3, MSE(actual, pred), 1e-12)
	assert.True(t, math.IsNaN(MAE(nil, nil)))
}
