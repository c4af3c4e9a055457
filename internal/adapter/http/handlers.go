package http

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/export"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/forecast"
	"github.com/couchcryptid/flood-data-etl/internal/pipeline"
)

// Record page bounds for /dataset/records.
const (
	DefaultPageLimit = 500
	MaxPageLimit     = 5000
)

type datasetResponse struct {
	*domain.ProcessedDataset
	Records  int `json:"records"`
	Floods   int `json:"floods"`
	Outliers int `json:"outliers"`
}

type recordsResponse struct {
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
	Limit   int             `json:"limit"`
	Records []domain.Record `json:"records"`
}

type topAreasResponse struct {
	AreaCol string             `json:"area_col"`
	Areas   []domain.AreaCount `json:"areas"`
}

type yearDamage struct {
	Year   int                `json:"year"`
	Totals map[string]float64 `json:"totals"`
}

type damageResponse struct {
	Columns []string     `json:"columns"`
	PerYear []yearDamage `json:"per_year"`
}

// forecastResponse reports non-finite scores as null.
type forecastResponse struct {
	Model       string           `json:"model"`
	TrainMonths int              `json:"train_months"`
	TestMonths  int              `json:"test_months"`
	Train       []forecast.Point `json:"train"`
	Test        []forecast.Point `json:"test"`
	Predictions []forecast.Point `json:"predictions"`
	Future      []forecast.Point `json:"future"`
	MAE         *float64         `json:"mae"`
	MSE         *float64         `json:"mse"`
	AIC         *float64         `json:"aic"`
}

// latest returns the current snapshot or renders 404.
func (s *Server) latest(w http.ResponseWriter, r *http.Request) (*domain.ProcessedDataset, bool) {
	ds := s.svc.Latest()
	if ds == nil {
		s.renderError(w, r, pipeline.ErrNoDataset)
		return nil, false
	}
	return ds, true
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.latest(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, datasetResponse{
		ProcessedDataset: ds,
		Records:          len(ds.Records),
		Floods:           ds.FloodCount(),
		Outliers:         ds.OutlierCount(),
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", DefaultPageLimit)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)

	ds, ok := s.latest(w, r)
	if !ok {
		return
	}
	start := min(offset, len(ds.Records))
	end := min(start+limit, len(ds.Records))
	render.JSON(w, r, recordsResponse{
		Total:   len(ds.Records),
		Offset:  offset,
		Limit:   limit,
		Records: nonNil(ds.Records[start:end]),
	})
}

func (s *Server) handleTopAreas(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.latest(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, topAreasResponse{
		AreaCol: ds.Schema.AreaCol,
		Areas:   nonNil(ds.TopAffectedAreas),
	})
}

func (s *Server) handleDamage(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.latest(w, r)
	if !ok {
		return
	}
	resp := damageResponse{Columns: nonNil(ds.Schema.DamageCols), PerYear: []yearDamage{}}
	if len(ds.Schema.DamageCols) > 0 {
		for _, y := range ds.Years() {
			totals, ok := ds.DamagePerYear[y]
			if !ok {
				continue
			}
			resp.PerYear = append(resp.PerYear, yearDamage{Year: y, Totals: totals})
		}
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var opts domain.Options
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &opts); err != nil {
			badRequest(w, r, "invalid JSON body: "+err.Error())
			return
		}
	}
	ds, err := s.svc.Reprocess(r.Context(), opts)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, datasetResponse{
		ProcessedDataset: ds,
		Records:          len(ds.Records),
		Floods:           ds.FloodCount(),
		Outliers:         ds.OutlierCount(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "artifact")
	artifact, found := export.Lookup(name)
	if !found {
		notFound(w, r, fmt.Sprintf("unknown artifact %q", name))
		return
	}
	ds, ok := s.latest(w, r)
	if !ok {
		return
	}
	if !artifact.Available(ds) {
		notFound(w, r, fmt.Sprintf("artifact %q is not available for this dataset", name))
		return
	}

	var buf bytes.Buffer
	if err := artifact.Write(&buf, ds); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck,gosec // client disconnects are not actionable
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var opts forecast.Options
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &opts); err != nil {
			badRequest(w, r, "invalid JSON body: "+err.Error())
			return
		}
	}
	ev, err := s.svc.Forecast(r.Context(), opts)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, forecastResponse{
		Model:       ev.Model,
		TrainMonths: ev.TrainMonths,
		TestMonths:  ev.TestMonths,
		Train:       nonNil(ev.Train),
		Test:        nonNil(ev.Test),
		Predictions: nonNil(ev.Predictions),
		Future:      nonNil(ev.Future),
		MAE:         finiteOrNil(ev.MAE),
		MSE:         finiteOrNil(ev.MSE),
		AIC:         finiteOrNil(ev.AIC),
	})
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
