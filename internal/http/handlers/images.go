package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"colorway/internal/imagesource"
	"colorway/internal/middleware"
	"colorway/internal/providers/openai"
)

// imageRef carries the exactly-one-of image reference shared by every
// endpoint that starts from an existing picture.
type imageRef struct {
	ImageBase64 string `json:"image_base64"`
	ImageURL    string `json:"image_url"`
}

func (ref imageRef) input() imagesource.Input {
	return imagesource.Input{Base64: ref.ImageBase64, URL: ref.ImageURL}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type editRequest struct {
	imageRef
	Prompt     string `json:"prompt"`
	MaskBase64 string `json:"mask_base64"`
	MaskURL    string `json:"mask_url"`
	Size       string `json:"size"`
}

type imageResult struct {
	Image         string `json:"image"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type generateResponse struct {
	Created int64         `json:"created,omitempty"`
	Images  []imageResult `json:"images"`
}

type editResponse struct {
	Created int64       `json:"created,omitempty"`
	Image   imageResult `json:"image"`
}

var errPromptRequired = errors.New("prompt is required")

func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	resp, err := a.generateOp(r.Context(), middleware.APIKeyFromContext(r.Context()), req)
	if err != nil {
		if errors.Is(err, errPromptRequired) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.opError(w, err)
		return
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	resp, err := a.editOp(r.Context(), middleware.APIKeyFromContext(r.Context()), req)
	if err != nil {
		if errors.Is(err, errPromptRequired) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.opError(w, err)
		return
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) generateOp(ctx context.Context, apiKey string, req generateRequest) (*generateResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errPromptRequired
	}
	images, err := a.Client.Generate(ctx, openai.GenerateRequest{
		APIKey: apiKey,
		Prompt: req.Prompt,
		N:      req.N,
		Size:   req.Size,
	})
	if err != nil {
		return nil, err
	}
	resp := &generateResponse{Images: make([]imageResult, 0, len(images))}
	for _, img := range images {
		if resp.Created == 0 {
			resp.Created = img.Created
		}
		resp.Images = append(resp.Images, imageResult{Image: img.DataURL, RevisedPrompt: img.RevisedPrompt})
	}
	return resp, nil
}

func (a *App) editOp(ctx context.Context, apiKey string, req editRequest) (*editResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errPromptRequired
	}
	source, err := a.Resolver.Resolve(ctx, req.input())
	if err != nil {
		return nil, err
	}
	var mask *imagesource.Payload
	if strings.TrimSpace(req.MaskBase64) != "" || strings.TrimSpace(req.MaskURL) != "" {
		mask, err = a.Resolver.Resolve(ctx, imagesource.Input{Base64: req.MaskBase64, URL: req.MaskURL})
		if err != nil {
			return nil, err
		}
	}
	img, err := a.Client.Edit(ctx, openai.EditRequest{
		APIKey: apiKey,
		Image:  source,
		Mask:   mask,
		Prompt: req.Prompt,
		Size:   req.Size,
	})
	if err != nil {
		return nil, err
	}
	return &editResponse{
		Created: img.Created,
		Image:   imageResult{Image: img.DataURL, RevisedPrompt: img.RevisedPrompt},
	}, nil
}
