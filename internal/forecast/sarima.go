package forecast

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

const (
	// penalty replaces objective values that overflow or turn NaN, steering
	// Nelder-Mead back towards finite regions.
	penalty = 1e100

	// minVariance keeps the log-likelihood finite for perfectly fitted series.
	minVariance = 1e-300
)

// Model is a fitted seasonal ARIMA model. The zero value is not usable; build
// one with Fit.
type Model struct {
	order    Order
	seasonal SeasonalOrder

	params []float64
	ar     []float64 // ar[k-1] multiplies w[t-k]
	ma     []float64 // ma[j-1] multiplies e[t-j]
	diff   []float64 // diff[k-1] multiplies y[t-k] when undifferencing

	nobs   int
	sigma2 float64
	llf    float64
}

// Name identifies the model, e.g. "SARIMA(1,0,1)(1,0,1,12)".
func (m *Model) Name() string { return modelName(m.order, m.seasonal) }

func modelName(o Order, s SeasonalOrder) string {
	return "SARIMA" + o.String() + s.String()
}

// Params returns the estimated coefficients in the order
// AR, seasonal AR, MA, seasonal MA.
func (m *Model) Params() []float64 {
	out := make([]float64, len(m.params))
	copy(out, m.params)
	return out
}

// Nobs is the number of differenced observations the fit was scored on.
func (m *Model) Nobs() int { return m.nobs }

// Sigma2 is the residual variance.
func (m *Model) Sigma2() float64 { return m.sigma2 }

// LogLikelihood is the Gaussian conditional log-likelihood of the fit.
func (m *Model) LogLikelihood() float64 { return m.llf }

// AIC is -2*llf + 2*k, counting the coefficients and the residual variance.
func (m *Model) AIC() float64 {
	k := len(m.params) + 1
	return -2*m.llf + 2*float64(k)
}

// Fit estimates the model on y by conditional sum of squares, taking the
// differenced values and shocks before the sample as zero. The fit checks ctx
// between optimizer iterations and returns ctx.Err() once it is done.
func Fit(ctx context.Context, y []float64, order Order, seasonal SeasonalOrder) (*Model, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if err := seasonal.Validate(); err != nil {
		return nil, err
	}

	m := &Model{order: order, seasonal: seasonal}
	m.diff = lagCoefficients(differencingPolynomial(order.D, seasonal.D, seasonal.S))

	w := difference(y, m.diff)
	nParams := order.P + seasonal.P + order.Q + seasonal.Q
	nEff := len(w)
	if nEff == 0 || nEff <= nParams {
		return nil, &domain.FitError{
			Model: m.Name(),
			Cause: fmt.Errorf("%d observations after differencing, need more than %d", nEff, nParams),
		}
	}
	m.nobs = nEff

	objective := func(x []float64) float64 {
		ar, ma := m.polynomials(x)
		e := residuals(w, ar, ma)
		v := floats.Dot(e, e) / float64(nEff)
		if math.IsNaN(v) || math.IsInf(v, 0) || v > penalty {
			return penalty
		}
		return v
	}

	x := make([]float64, nParams)
	if nParams > 0 {
		result, err := optimize.Minimize(
			optimize.Problem{Func: objective},
			x,
			&optimize.Settings{
				FuncEvaluations: 20000,
				MajorIterations: 5000,
				Converger: &optimize.FunctionConverge{
					Absolute:   1e-12,
					Iterations: 200,
				},
				Recorder: ctxRecorder{ctx: ctx},
			},
			&optimize.NelderMead{},
		)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil && !budgetExhausted(result) {
			return nil, &domain.FitError{Model: m.Name(), Cause: err}
		}
		x = result.X
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.params = x
	m.ar, m.ma = m.polynomials(x)
	e := residuals(w, m.ar, m.ma)
	m.sigma2 = floats.Dot(e, e) / float64(nEff)
	if math.IsNaN(m.sigma2) || math.IsInf(m.sigma2, 0) || m.sigma2 >= penalty {
		return nil, &domain.FitError{Model: m.Name(), Cause: fmt.Errorf("residuals diverged")}
	}
	variance := math.Max(m.sigma2, minVariance)
	m.llf = -float64(nEff) / 2 * (math.Log(2*math.Pi*variance) + 1)
	return m, nil
}

// PredictInSample returns one-step-ahead predictions for y[from:], each
// conditioned on the true values before it.
func (m *Model) PredictInSample(y []float64, from int) ([]float64, error) {
	lagD := len(m.diff)
	if from < lagD || from > len(y) {
		return nil, fmt.Errorf("predict from %d: need at least %d observations of history", from, lagD)
	}

	w := difference(y, m.diff)
	e := residuals(w, m.ar, m.ma)

	out := make([]float64, len(y)-from)
	for t := from; t < len(y); t++ {
		i := t - lagD
		out[t-from] = (w[i] - e[i]) + undifference(y, t, m.diff)
	}
	return out, nil
}

// Forecast extends y by horizon steps. Future shocks are taken as zero and
// each forecast feeds the next. Returns nil when y is too short to undo the
// differencing.
func (m *Model) Forecast(y []float64, horizon int) []float64 {
	lagD := len(m.diff)
	if len(y) <= lagD {
		return nil
	}
	w := difference(y, m.diff)
	e := residuals(w, m.ar, m.ma)

	ys := append([]float64(nil), y...)
	ws := append([]float64(nil), w...)
	out := make([]float64, horizon)
	for h := range out {
		t := len(ys)
		i := t - lagD
		what := 0.0
		for k, a := range m.ar {
			if j := i - k - 1; j >= 0 && j < len(ws) {
				what += a * ws[j]
			}
		}
		for k, b := range m.ma {
			if j := i - k - 1; j >= 0 && j < len(e) {
				what += b * e[j]
			}
		}
		next := what + undifference(ys, t, m.diff)
		ws = append(ws, what)
		ys = append(ys, next)
		out[h] = next
	}
	return out
}

// polynomials expands a parameter vector into combined lag coefficients.
func (m *Model) polynomials(x []float64) (ar, ma []float64) {
	o, s := m.order, m.seasonal
	phi := x[:o.P]
	sPhi := x[o.P : o.P+s.P]
	theta := x[o.P+s.P : o.P+s.P+o.Q]
	sTheta := x[o.P+s.P+o.Q:]

	arPoly := polyMul(lagPolynomial(phi, 1, -1), lagPolynomial(sPhi, s.S, -1))
	maPoly := polyMul(lagPolynomial(theta, 1, 1), lagPolynomial(sTheta, s.S, 1))
	return lagCoefficients(arPoly), negate(lagCoefficients(maPoly))
}

// lagPolynomial builds 1 + sign*(c1 B^step + c2 B^2step + ...).
func lagPolynomial(coef []float64, step int, sign float64) []float64 {
	if len(coef) == 0 {
		return []float64{1}
	}
	p := make([]float64, len(coef)*step+1)
	p[0] = 1
	for i, c := range coef {
		p[(i+1)*step] = sign * c
	}
	return p
}

// differencingPolynomial builds (1-B)^d (1-B^s)^D.
func differencingPolynomial(d, sd, s int) []float64 {
	p := []float64{1}
	for i := 0; i < d; i++ {
		p = polyMul(p, []float64{1, -1})
	}
	for i := 0; i < sd; i++ {
		p = polyMul(p, lagPolynomial([]float64{1}, s, -1))
	}
	return p
}

// lagCoefficients turns 1 - c1 B - c2 B^2 ... into [c1, c2, ...].
func lagCoefficients(poly []float64) []float64 {
	out := make([]float64, len(poly)-1)
	for k := 1; k < len(poly); k++ {
		out[k-1] = -poly[k]
	}
	return out
}

func negate(v []float64) []float64 {
	floats.Scale(-1, v)
	return v
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// difference applies the differencing filter: w[i] = y[i+L] - sum c_k y[i+L-k].
func difference(y, c []float64) []float64 {
	lag := len(c)
	if len(y) <= lag {
		return nil
	}
	w := make([]float64, len(y)-lag)
	for i := range w {
		t := i + lag
		w[i] = y[t] - undifference(y, t, c)
	}
	return w
}

// undifference returns sum c_k y[t-k], the part of y[t] removed by differencing.
func undifference(y []float64, t int, c []float64) float64 {
	s := 0.0
	for k, ck := range c {
		if ck != 0 {
			s += ck * y[t-k-1]
		}
	}
	return s
}

// residuals runs the ARMA recursion on w. Values and shocks before the
// sample count as zero.
func residuals(w, ar, ma []float64) []float64 {
	e := make([]float64, len(w))
	for i := range w {
		pred := 0.0
		for k, a := range ar {
			if j := i - k - 1; j >= 0 {
				pred += a * w[j]
			}
		}
		for k, b := range ma {
			if j := i - k - 1; j >= 0 {
				pred += b * e[j]
			}
		}
		e[i] = w[i] - pred
	}
	return e
}

// budgetExhausted reports whether the optimizer stopped on an iteration or
// evaluation limit; its best point is still used.
func budgetExhausted(r *optimize.Result) bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit:
		return true
	}
	return false
}

// ctxRecorder aborts the optimizer once ctx is done.
type ctxRecorder struct{ ctx context.Context }

func (r ctxRecorder) Init() error { return r.ctx.Err() }

func (r ctxRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.ctx.Err()
}
