package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"colorway/internal/metrics"
)

var (
	// ErrEmptyBatch rejects submissions with no sub-requests.
	ErrEmptyBatch = errors.New("jobs: batch must contain at least one request")

	// ErrUnsupportedEndpoint is returned by a Runner when it does not
	// recognize a sub-request's endpoint. The orchestrator records a
	// placeholder result instead of failing the job.
	ErrUnsupportedEndpoint = errors.New("jobs: unsupported endpoint")
)

// notImplementedResult stands in for sub-requests naming an endpoint the
// dispatcher does not handle.
const notImplementedResult = "not implemented"

// Runner executes one sub-request on behalf of the submitting caller's
// credential.
type Runner func(ctx context.Context, apiKey string, sub SubRequest) (any, error)

// Orchestrator accepts batches, tracks them in the registry, and processes
// them on detached goroutines. Processing outlives the submitting request,
// so everything it needs is captured at submit time.
type Orchestrator struct {
	registry *Registry
	run      Runner
	logger   zerolog.Logger
}

func NewOrchestrator(registry *Registry, run Runner, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, run: run, logger: logger}
}

// Submit registers the batch as queued, kicks off detached processing, and
// returns immediately. The returned job carries the ID callers poll with.
func (o *Orchestrator) Submit(apiKey string, subs []SubRequest) (Job, error) {
	if len(subs) == 0 {
		return Job{}, ErrEmptyBatch
	}
	now := time.Now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.registry.Set(job)
	o.logger.Info().Str("job_id", job.ID).Int("requests", len(subs)).Msg("jobs: batch queued")
	go o.process(job, apiKey, subs)
	return job, nil
}

// Status looks up a job by ID.
func (o *Orchestrator) Status(id string) (Job, bool) {
	return o.registry.Get(id)
}

func (o *Orchestrator) process(job Job, apiKey string, subs []SubRequest) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Str("job_id", job.ID).Interface("panic", r).Msg("jobs: batch panicked")
			o.finish(job, StatusFailed, nil, fmt.Sprintf("panic: %v", r))
		}
	}()

	ctx := context.Background()
	start := time.Now()
	job.Status = StatusProcessing
	job.UpdatedAt = time.Now().UTC()
	o.registry.Set(job)

	results := make([]ItemResult, 0, len(subs))
	for _, sub := range subs {
		res, err := o.run(ctx, apiKey, sub)
		if errors.Is(err, ErrUnsupportedEndpoint) {
			o.logger.Warn().Str("job_id", job.ID).Str("endpoint", sub.Endpoint).Msg("jobs: unrecognized endpoint")
			results = append(results, ItemResult{Endpoint: sub.Endpoint, Result: notImplementedResult})
			continue
		}
		if err != nil {
			o.logger.Warn().Str("job_id", job.ID).Str("endpoint", sub.Endpoint).Err(err).Msg("jobs: sub-request failed")
			o.finish(job, StatusFailed, nil, err.Error())
			return
		}
		results = append(results, ItemResult{Endpoint: sub.Endpoint, Result: res})
	}
	o.finish(job, StatusCompleted, results, "")
	o.logger.Info().
		Str("job_id", job.ID).
		Int("requests", len(subs)).
		Dur("elapsed", time.Since(start)).
		Msg("jobs: batch completed")
}

func (o *Orchestrator) finish(job Job, status Status, results []ItemResult, errMsg string) {
	job.Status = status
	job.Result = results
	job.Error = errMsg
	job.UpdatedAt = time.Now().UTC()
	o.registry.Set(job)
	metrics.JobsProcessed.WithLabelValues(string(status)).Inc()
}
