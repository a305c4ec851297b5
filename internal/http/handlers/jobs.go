package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"colorway/internal/imagesource"
	"colorway/internal/jobs"
	"colorway/pkg/zip"

	"github.com/go-chi/chi/v5"
)

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, ok := a.Jobs.Status(jobID)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, job)
}

// JobDownload streams every image a completed batch produced as one zip
// archive. Jobs still in flight answer 409 so clients keep polling.
func (a *App) JobDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, ok := a.Jobs.Status(jobID)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	if job.Status != jobs.StatusCompleted {
		a.error(w, http.StatusConflict, "not_ready", fmt.Sprintf("job is %s, not completed", job.Status))
		return
	}
	assets := collectAssets(job)
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "no_images", "job produced no downloadable images")
		return
	}
	archive, err := zip.Archive(assets)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("archive job images")
		a.error(w, http.StatusInternalServerError, "internal", "could not build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job-%s.zip", jobID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// collectAssets walks the per-item results and decodes every inline image
// it finds. Placeholder entries for unsupported endpoints carry no images
// and are skipped.
func collectAssets(job jobs.Job) []zip.Asset {
	var assets []zip.Asset
	add := func(name, dataURL string) {
		mime, data, err := imagesource.DecodeDataURL(dataURL)
		if err != nil || len(data) == 0 {
			return
		}
		assets = append(assets, zip.Asset{Filename: name, MIME: mime, Data: data})
	}
	for i, item := range job.Result {
		prefix := fmt.Sprintf("%02d-%s", i+1, item.Endpoint)
		switch res := item.Result.(type) {
		case *generateResponse:
			for j, img := range res.Images {
				add(fmt.Sprintf("%s-%02d", prefix, j+1), img.Image)
			}
		case *editResponse:
			add(prefix, res.Image.Image)
		case *variationsResponse:
			for _, v := range res.Variations {
				add(fmt.Sprintf("%s-%s", prefix, slugify(v.Value)), v.Image.Image)
			}
		}
	}
	return assets
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
}
