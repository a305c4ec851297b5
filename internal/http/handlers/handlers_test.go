package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"colorway/internal/imagesource"
	"colorway/internal/infra"
	"colorway/internal/jobs"
	"colorway/internal/providers/openai"
	"colorway/internal/variations"

	"github.com/rs/zerolog"
)

// testImageURL decodes to two bytes, enough to flow through the zip path.
const testImageURL = "data:image/png;base64,iVA="

// stubBackend stands in for the upstream client. The zero value answers
// every call with a fixed image; set generateFn or editFn to override.
type stubBackend struct {
	mu         sync.Mutex
	generated  []openai.GenerateRequest
	edits      []openai.EditRequest
	generateFn func(req openai.GenerateRequest) ([]openai.Image, error)
	editFn     func(req openai.EditRequest) (*openai.Image, error)
}

func (s *stubBackend) Generate(_ context.Context, req openai.GenerateRequest) ([]openai.Image, error) {
	s.mu.Lock()
	s.generated = append(s.generated, req)
	s.mu.Unlock()
	if s.generateFn != nil {
		return s.generateFn(req)
	}
	n := req.N
	if n < 1 {
		n = 1
	}
	images := make([]openai.Image, n)
	for i := range images {
		images[i] = openai.Image{DataURL: testImageURL, Created: 1700000000}
	}
	return images, nil
}

func (s *stubBackend) Edit(_ context.Context, req openai.EditRequest) (*openai.Image, error) {
	s.mu.Lock()
	s.edits = append(s.edits, req)
	s.mu.Unlock()
	if s.editFn != nil {
		return s.editFn(req)
	}
	return &openai.Image{DataURL: testImageURL, Created: 1700000000}, nil
}

func (s *stubBackend) editCalls() []openai.EditRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openai.EditRequest(nil), s.edits...)
}

func (s *stubBackend) generateCalls() []openai.GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openai.GenerateRequest(nil), s.generated...)
}

func newTestApp(backend *stubBackend) *App {
	logger := zerolog.Nop()
	cfg := &infra.Config{AppEnv: "test", CORSAllowedOrigins: []string{"*"}}
	resolver := imagesource.NewResolver(imagesource.Options{Logger: logger})
	driver := variations.NewDriver(backend, logger)
	return NewApp(cfg, logger, resolver, backend, driver)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func waitForJob(t *testing.T, app *App, id string) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := app.Registry.Get(id); ok && job.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal status", id)
	return jobs.Job{}
}
