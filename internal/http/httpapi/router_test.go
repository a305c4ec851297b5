package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"colorway/internal/http/handlers"
	"colorway/internal/imagesource"
	"colorway/internal/infra"
	"colorway/internal/providers/openai"
	"colorway/internal/variations"

	"github.com/rs/zerolog"
)

const testImageURL = "data:image/png;base64,iVA="

type stubBackend struct{}

func (stubBackend) Generate(_ context.Context, req openai.GenerateRequest) ([]openai.Image, error) {
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

func (stubBackend) Edit(context.Context, openai.EditRequest) (*openai.Image, error) {
	return &openai.Image{DataURL: testImageURL, Created: 1700000000}, nil
}

func newTestRouter(serverKey string) (http.Handler, *handlers.App) {
	logger := zerolog.Nop()
	cfg := &infra.Config{
		AppEnv:             "test",
		OpenAIAPIKey:       serverKey,
		CORSAllowedOrigins: []string{"*"},
	}
	backend := stubBackend{}
	resolver := imagesource.NewResolver(imagesource.Options{Logger: logger})
	driver := variations.NewDriver(backend, logger)
	app := handlers.NewApp(cfg, logger, resolver, backend, driver)
	return NewRouter(app), app
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterRequiresProviderKey(t *testing.T) {
	router, _ := newTestRouter("")

	rec := do(t, router, http.MethodPost, "/v1/generate", `{"prompt":"a mug"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing_api_key") {
		t.Fatalf("body = %s, want missing_api_key", rec.Body.String())
	}
}

func TestRouterGenerateWithBearerKey(t *testing.T) {
	router, _ := newTestRouter("")

	rec := do(t, router, http.MethodPost, "/v1/generate", `{"prompt":"a mug"}`,
		map[string]string{"Authorization": "Bearer sk-test"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), testImageURL) {
		t.Fatalf("body = %s, want inline image", rec.Body.String())
	}
}

func TestRouterServerKeyFallback(t *testing.T) {
	router, _ := newTestRouter("sk-server")

	rec := do(t, router, http.MethodPost, "/v1/generate", `{"prompt":"a mug"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterOpenEndpoints(t *testing.T) {
	router, _ := newTestRouter("")

	if rec := do(t, router, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/jobs/unknown", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("job lookup = %d, want 404 without credentials", rec.Code)
	}
	rec := do(t, router, http.MethodGet, "/openapi.json", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Colorway API") {
		t.Fatalf("openapi = %d, want embedded document", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/docs", "", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "redoc") {
		t.Fatalf("docs = %d", rec.Code)
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	router, _ := newTestRouter("sk-server")

	do(t, router, http.MethodPost, "/v1/generate", `{"prompt":"a mug"}`, nil)
	rec := do(t, router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "colorway_http_requests_total") {
		t.Fatal("request counter missing from exposition")
	}
}

func TestRouterPreflight(t *testing.T) {
	router, _ := newTestRouter("")

	rec := do(t, router, http.MethodOptions, "/v1/generate", "",
		map[string]string{"Origin": "https://studio.example"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("allow-origin header missing")
	}
}

func TestRouterBatchLifecycle(t *testing.T) {
	router, _ := newTestRouter("")
	auth := map[string]string{"X-API-Key": "sk-test"}

	rec := do(t, router, http.MethodPost, "/v1/batch", `{"requests":[
		{"endpoint":"generate","payload":{"prompt":"a mug"}},
		{"endpoint":"upscale","payload":{}}
	]}`, auth)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if accepted.JobID == "" || accepted.Status != "queued" {
		t.Fatalf("submit response = %+v", accepted)
	}

	var last map[string]any
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		poll := do(t, router, http.MethodGet, "/v1/jobs/"+accepted.JobID, "", nil)
		if poll.Code != http.StatusOK {
			t.Fatalf("poll = %d: %s", poll.Code, poll.Body.String())
		}
		if err := json.Unmarshal(poll.Body.Bytes(), &last); err != nil {
			t.Fatalf("decode poll response: %v", err)
		}
		if last["status"] == "completed" || last["status"] == "failed" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if last["status"] != "completed" {
		t.Fatalf("job did not complete: %v", last)
	}
	results, _ := last["result"].([]any)
	if len(results) != 2 {
		t.Fatalf("results = %v, want 2 entries", last["result"])
	}
	second, _ := results[1].(map[string]any)
	if second["result"] != "not implemented" {
		t.Fatalf("placeholder = %v", second["result"])
	}

	download := do(t, router, http.MethodGet, "/v1/jobs/"+accepted.JobID+"/download", "", nil)
	if download.Code != http.StatusOK {
		t.Fatalf("download = %d: %s", download.Code, download.Body.String())
	}
	zr, err := zip.NewReader(bytes.NewReader(download.Body.Bytes()), int64(download.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 1 {
		t.Fatalf("archive entries = %d, want 1", len(zr.File))
	}
}
