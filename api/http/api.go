package http

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/model"
	"github.com/ju4n97/storyreel/internal/pipeline"
	"github.com/ju4n97/storyreel/internal/service"
)

// NewAPI creates the huma API on mux.
func NewAPI(mux *http.ServeMux, version string) huma.API {
	cfg := huma.DefaultConfig("storyreel", version)
	cfg.Info.Description = "Turns text into narrated audio or video."
	return humago.New(mux, cfg)
}

// toStatusError maps domain errors to HTTP errors. Messages keep the unit
// index when one applies.
func toStatusError(msg string, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput),
		errors.Is(err, backend.ErrEmptyInput):
		return huma.Error422UnprocessableEntity(err.Error(), err)
	case errors.Is(err, pipeline.ErrSynthesis):
		return huma.Error422UnprocessableEntity(err.Error(), err)
	case errors.Is(err, pipeline.ErrInvalidConfiguration),
		errors.Is(err, service.ErrWrongModelType),
		errors.Is(err, service.ErrBackendMismatch):
		return huma.Error400BadRequest(err.Error(), err)
	case errors.Is(err, model.ErrModelNotFound),
		errors.Is(err, service.ErrNoModelAvailable):
		return huma.Error404NotFound("model not found", err)
	case errors.Is(err, model.ErrManagerClosed),
		errors.Is(err, backend.ErrBackendNotFound):
		return huma.Error503ServiceUnavailable(err.Error(), err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
