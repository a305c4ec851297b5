package handlers

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"colorway/internal/jobs"

	"github.com/go-chi/chi/v5"
)

func jobsRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/jobs/{job_id}", app.JobStatus)
	r.Get("/v1/jobs/{job_id}/download", app.JobDownload)
	return r
}

func getPath(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJobStatusUnknownID(t *testing.T) {
	app := newTestApp(&stubBackend{})

	rec := getPath(t, jobsRouter(app), "/v1/jobs/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeJSON(t, rec); body["error"] != "not_found" {
		t.Fatalf("error = %v, want not_found", body["error"])
	}
}

func TestJobStatusReturnsSnapshot(t *testing.T) {
	app := newTestApp(&stubBackend{})
	app.Registry.Set(jobs.Job{
		ID:        "job-1",
		Status:    jobs.StatusProcessing,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	})

	rec := getPath(t, jobsRouter(app), "/v1/jobs/job-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["job_id"] != "job-1" || body["status"] != string(jobs.StatusProcessing) {
		t.Fatalf("snapshot = %v", body)
	}
}

func TestJobDownloadNotReady(t *testing.T) {
	app := newTestApp(&stubBackend{})
	app.Registry.Set(jobs.Job{ID: "job-1", Status: jobs.StatusProcessing})

	rec := getPath(t, jobsRouter(app), "/v1/jobs/job-1/download")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if body := decodeJSON(t, rec); body["error"] != "not_ready" {
		t.Fatalf("error = %v, want not_ready", body["error"])
	}
}

func TestJobDownloadBundlesImages(t *testing.T) {
	app := newTestApp(&stubBackend{})
	app.Registry.Set(jobs.Job{
		ID:     "job-1",
		Status: jobs.StatusCompleted,
		Result: []jobs.ItemResult{
			{Endpoint: "edit", Result: &editResponse{Image: imageResult{Image: testImageURL}}},
			{Endpoint: "upscale", Result: "not implemented"},
			{Endpoint: "recolor", Result: &variationsResponse{Variations: []variationEntry{
				{Value: "royal blue", Label: "Royal Blue", Image: imageResult{Image: testImageURL}},
			}}},
		},
	})

	rec := getPath(t, jobsRouter(app), "/v1/jobs/job-1/download")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type = %q, want application/zip", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "job-job-1.zip") {
		t.Fatalf("content disposition = %q", cd)
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if len(names) != 2 {
		t.Fatalf("entries = %v, want 2", names)
	}
	want := map[string]bool{"01-edit.png": true, "03-recolor-royal-blue.png": true}
	for _, name := range names {
		if !want[name] {
			t.Fatalf("unexpected entry %q in %v", name, names)
		}
	}
}

func TestJobDownloadWithoutImages(t *testing.T) {
	app := newTestApp(&stubBackend{})
	app.Registry.Set(jobs.Job{
		ID:     "job-1",
		Status: jobs.StatusCompleted,
		Result: []jobs.ItemResult{{Endpoint: "upscale", Result: "not implemented"}},
	})

	rec := getPath(t, jobsRouter(app), "/v1/jobs/job-1/download")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeJSON(t, rec); body["error"] != "no_images" {
		t.Fatalf("error = %v, want no_images", body["error"])
	}
}
