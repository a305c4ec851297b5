package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"colorway/internal/jobs"
	"colorway/internal/middleware"
)

type batchRequest struct {
	Requests []jobs.SubRequest `json:"requests"`
}

type jobAccepted struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
}

// BatchSubmit registers a fire-and-forget batch and answers immediately
// with the job id. Processing happens on a detached goroutine, so the
// caller's credential is captured here and travels with the job.
func (a *App) BatchSubmit(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, err := a.Jobs.Submit(middleware.APIKeyFromContext(r.Context()), req.Requests)
	if err != nil {
		if errors.Is(err, jobs.ErrEmptyBatch) {
			a.error(w, http.StatusBadRequest, "empty_batch", "requests must contain at least one entry")
			return
		}
		a.opError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, jobAccepted{JobID: job.ID, Status: job.Status})
}

// runBatchItem dispatches one batched sub-request to the operation behind
// the matching single-shot endpoint. Unknown endpoints surface
// jobs.ErrUnsupportedEndpoint so the orchestrator can record a placeholder
// instead of failing the whole batch.
func (a *App) runBatchItem(ctx context.Context, apiKey string, sub jobs.SubRequest) (any, error) {
	switch strings.ToLower(strings.TrimSpace(sub.Endpoint)) {
	case "generate":
		var req generateRequest
		if err := decodePayload(sub.Payload, &req); err != nil {
			return nil, err
		}
		return a.generateOp(ctx, apiKey, req)
	case "edit":
		var req editRequest
		if err := decodePayload(sub.Payload, &req); err != nil {
			return nil, err
		}
		return a.editOp(ctx, apiKey, req)
	case "recolor":
		var req recolorRequest
		if err := decodePayload(sub.Payload, &req); err != nil {
			return nil, err
		}
		return a.recolorOp(ctx, apiKey, req)
	case "visualize":
		var req visualizeRequest
		if err := decodePayload(sub.Payload, &req); err != nil {
			return nil, err
		}
		return a.visualizeOp(ctx, apiKey, req)
	default:
		return nil, jobs.ErrUnsupportedEndpoint
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("payload is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
