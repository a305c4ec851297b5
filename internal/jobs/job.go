// Package jobs tracks batched requests in memory, fire-and-forget style.
// Nothing is persisted; a restart drops every job and callers re-submit.
package jobs

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle of a batch job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// SubRequest is one batched intent: the endpoint it targets plus the raw
// payload the dispatcher decodes later.
type SubRequest struct {
	Endpoint string          `json:"endpoint"`
	Payload  json.RawMessage `json:"payload"`
}

// ItemResult is the outcome of one sub-request, positionally aligned with
// the submitted batch.
type ItemResult struct {
	Endpoint string `json:"endpoint"`
	Result   any    `json:"result"`
}

// Job is a tracked batch. Result is populated only on completion, Error
// only on failure.
type Job struct {
	ID        string       `json:"job_id"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Result    []ItemResult `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Terminal reports whether the job can no longer change state.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
