// Package handlers exposes the HTTP surface of the colorway API. Every
// handler hangs off App, which carries the wired dependencies, and the
// batch orchestrator dispatches back into the same operations the
// single-shot endpoints use.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"colorway/internal/imagesource"
	"colorway/internal/infra"
	"colorway/internal/jobs"
	"colorway/internal/providers/openai"
	"colorway/internal/variations"
)

// Transformer is the upstream image surface the endpoints call.
type Transformer interface {
	Generate(ctx context.Context, req openai.GenerateRequest) ([]openai.Image, error)
	Edit(ctx context.Context, req openai.EditRequest) (*openai.Image, error)
}

// VariationProducer fans one source image out into an attribute-driven set.
type VariationProducer interface {
	Produce(ctx context.Context, policy variations.Policy, req variations.Request) ([]variations.Variation, error)
}

// SourceResolver turns request image references into raw payloads.
type SourceResolver interface {
	Resolve(ctx context.Context, in imagesource.Input) (*imagesource.Payload, error)
}

type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Resolver SourceResolver
	Client   Transformer
	Driver   VariationProducer
	Jobs     *jobs.Orchestrator
	Registry *jobs.Registry
}

func NewApp(cfg *infra.Config, logger infra.Logger, resolver SourceResolver, client Transformer, driver VariationProducer) *App {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Resolver: resolver,
		Client:   client,
		Driver:   driver,
		Registry: jobs.NewRegistry(),
	}
	a.Jobs = jobs.NewOrchestrator(a.Registry, a.runBatchItem, logger)
	return a
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// opError maps pipeline failures onto HTTP statuses. Caller mistakes come
// back as 400, missing credentials as 401, upstream trouble as 502, and
// anything unexpected is logged and hidden behind a 500.
func (a *App) opError(w http.ResponseWriter, err error) {
	var fetchErr *imagesource.FetchError
	var upstreamErr *openai.UpstreamError
	switch {
	case errors.Is(err, imagesource.ErrMissingInput), errors.Is(err, imagesource.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, openai.ErrMissingAPIKey):
		a.error(w, http.StatusUnauthorized, "missing_api_key", err.Error())
	case errors.As(err, &fetchErr), errors.As(err, &upstreamErr), errors.Is(err, openai.ErrEmptyResult):
		a.error(w, http.StatusBadGateway, "upstream_error", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("operation failed")
		a.error(w, http.StatusInternalServerError, "internal", "unexpected error")
	}
}
