package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// MinMonthlyPoints is the shortest monthly series a model is fitted to.
const MinMonthlyPoints = 12

// Point is one month of the resampled series, labelled by the month's last day.
type Point struct {
	Month time.Time `json:"month"`
	Value float64   `json:"value"`
}

// MonthEnd returns midnight UTC on the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// ResampleMonthly averages values per calendar month. Every month between the
// first and last observation appears; empty months carry the previous month's
// mean forward, and anything still missing becomes 0. Timestamps need not be
// sorted.
func ResampleMonthly(ts []time.Time, values []float64) []Point {
	if len(ts) == 0 {
		return nil
	}

	type acc struct {
		sum float64
		n   int
	}
	buckets := make(map[time.Time]*acc)
	first, last := MonthEnd(ts[0]), MonthEnd(ts[0])
	for i, t := range ts {
		m := MonthEnd(t)
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
		if math.IsNaN(values[i]) {
			continue
		}
		a, ok := buckets[m]
		if !ok {
			a = &acc{}
			buckets[m] = a
		}
		a.sum += values[i]
		a.n++
	}

	var out []Point
	prev := math.NaN()
	for m := first; !m.After(last); m = MonthEnd(m.AddDate(0, 0, 1)) {
		v := prev
		if a, ok := buckets[m]; ok && a.n > 0 {
			v = a.sum / float64(a.n)
		}
		prev = v
		if math.IsNaN(v) {
			v = 0
		}
		out = append(out, Point{Month: m, Value: v})
	}
	return out
}

// Split cuts series at floor(len*ratio) into a training head and test tail.
func Split(series []Point, ratio float64) (train, test []Point, err error) {
	if len(series) < MinMonthlyPoints {
		return nil, nil, &domain.InsufficientDataError{Have: len(series), Need: MinMonthlyPoints, What: "monthly points"}
	}
	if !(ratio > 0 && ratio < 1) {
		return nil, nil, fmt.Errorf("%w: train ratio %v must be between 0 and 1", domain.ErrInvalidOptions, ratio)
	}
	cut := int(math.Floor(float64(len(series)) * ratio))
	if cut == 0 || cut == len(series) {
		return nil, nil, fmt.Errorf("%w: train ratio %v leaves an empty train or test slice", domain.ErrInvalidOptions, ratio)
	}
	return series[:cut], series[cut:], nil
}

// FutureMonths labels horizon months following last.
func FutureMonths(last time.Time, horizon int) []time.Time {
	out := make([]time.Time, horizon)
	m := MonthEnd(last)
	for i := range out {
		m = MonthEnd(m.AddDate(0, 0, 1))
		out[i] = m
	}
	return out
}

func values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
