package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/pipeline"
)

// errorResponse is the JSON body of every API error.
type errorResponse struct {
	Status int    `json:"-"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// Render implements render.Renderer.
func (e *errorResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Status)
	return nil
}

// errorFor maps a pipeline error to a status and error kind.
func errorFor(err error) *errorResponse {
	var (
		pe *domain.ParseError
		se *domain.SchemaError
		ie *domain.InsufficientDataError
		fe *domain.FitError
	)
	resp := &errorResponse{Error: err.Error()}
	switch {
	case errors.Is(err, pipeline.ErrNoDataset):
		resp.Status, resp.Kind = http.StatusNotFound, "no_dataset"
	case errors.Is(err, domain.ErrInvalidOptions):
		resp.Status, resp.Kind = http.StatusBadRequest, "invalid_options"
	case errors.As(err, &se):
		resp.Status, resp.Kind = http.StatusUnprocessableEntity, "schema"
	case errors.As(err, &ie):
		resp.Status, resp.Kind = http.StatusUnprocessableEntity, "insufficient_data"
	case errors.As(err, &fe):
		resp.Status, resp.Kind = http.StatusUnprocessableEntity, "fit"
	case errors.As(err, &pe):
		resp.Status, resp.Kind = http.StatusUnprocessableEntity, "parse"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		resp.Status, resp.Kind = http.StatusServiceUnavailable, "cancelled"
	default:
		resp.Status, resp.Kind = http.StatusInternalServerError, "internal"
		resp.Error = "internal server error"
	}
	return resp
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorFor(err)
	level := slog.LevelWarn
	if resp.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "api request failed",
		"path", r.URL.Path,
		"status", resp.Status,
		"error", err,
	)
	render.Render(w, r, resp) //nolint:errcheck // Render only fails when the renderer does
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Render(w, r, &errorResponse{Status: http.StatusBadRequest, Kind: "bad_request", Error: msg}) //nolint:errcheck // see renderError
}

func notFound(w http.ResponseWriter, r *http.Request, msg string) {
	render.Render(w, r, &errorResponse{Status: http.StatusNotFound, Kind: "not_found", Error: msg}) //nolint:errcheck // see renderError
}
