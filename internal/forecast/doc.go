// Package forecast fits a seasonal ARIMA model to monthly water levels and
// scores it against a held-out tail of the series.
//
// Parameters are estimated by conditional sum of squares (CSS): the series is
// differenced, residuals before the largest autoregressive lag are taken as
// zero, and the remaining squared residuals are minimised with Nelder-Mead.
// Stationarity and invertibility are not enforced, and the model carries no
// constant term.
package forecast
