package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"colorway/internal/middleware"
	"colorway/internal/variations"
)

type recolorRequest struct {
	imageRef
	Colors     []string `json:"colors"`
	Variations any      `json:"variations"`
	Size       string   `json:"size"`
}

type visualizeRequest struct {
	imageRef
	Palettes   []string `json:"palettes"`
	Variations any      `json:"variations"`
	Size       string   `json:"size"`
}

type variationEntry struct {
	Value string      `json:"value"`
	Label string      `json:"label"`
	Image imageResult `json:"image"`
}

type variationsResponse struct {
	Variations []variationEntry `json:"variations"`
}

// Recolor renders the source product in a set of solid colors, one upstream
// edit per colorway.
func (a *App) Recolor(w http.ResponseWriter, r *http.Request) {
	var req recolorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	resp, err := a.recolorOp(r.Context(), middleware.APIKeyFromContext(r.Context()), req)
	if err != nil {
		a.opError(w, err)
		return
	}
	a.json(w, http.StatusOK, resp)
}

// Visualize stages the source product inside palette-themed scenes.
func (a *App) Visualize(w http.ResponseWriter, r *http.Request) {
	var req visualizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	resp, err := a.visualizeOp(r.Context(), middleware.APIKeyFromContext(r.Context()), req)
	if err != nil {
		a.opError(w, err)
		return
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) recolorOp(ctx context.Context, apiKey string, req recolorRequest) (*variationsResponse, error) {
	return a.variationsOp(ctx, apiKey, variations.Recolor, req.imageRef, req.Colors, req.Variations, req.Size)
}

func (a *App) visualizeOp(ctx context.Context, apiKey string, req visualizeRequest) (*variationsResponse, error) {
	return a.variationsOp(ctx, apiKey, variations.Visualize, req.imageRef, req.Palettes, req.Variations, req.Size)
}

func (a *App) variationsOp(ctx context.Context, apiKey string, policy variations.Policy, ref imageRef, attrs []string, count any, size string) (*variationsResponse, error) {
	source, err := a.Resolver.Resolve(ctx, ref.input())
	if err != nil {
		return nil, err
	}
	set, err := a.Driver.Produce(ctx, policy, variations.Request{
		Source:     source,
		APIKey:     apiKey,
		Attributes: attrs,
		Count:      coerceCount(count),
		Size:       size,
	})
	if err != nil {
		return nil, err
	}
	resp := &variationsResponse{Variations: make([]variationEntry, 0, len(set))}
	for _, v := range set {
		resp.Variations = append(resp.Variations, variationEntry{
			Value: v.Value,
			Label: v.Label,
			Image: imageResult{Image: v.Image.DataURL, RevisedPrompt: v.Image.RevisedPrompt},
		})
	}
	return resp, nil
}

// coerceCount tolerates the loose variation counts clients send. Whole
// non-negative numbers and numeric strings are honored, anything else falls
// back to the policy default by returning nil.
func coerceCount(v any) *int {
	switch n := v.(type) {
	case float64:
		if n >= 0 && n == math.Trunc(n) && n <= math.MaxInt32 {
			c := int(n)
			return &c
		}
	case string:
		if c, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && c >= 0 {
			return &c
		}
	}
	return nil
}
