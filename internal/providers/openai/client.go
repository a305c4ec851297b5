// Package openai is a hand-rolled client for OpenAI-compatible image APIs.
// Results are normalized to inline data URLs regardless of whether the
// provider answered with base64 payloads or hosted locators.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"colorway/internal/imagesource"
	"colorway/internal/metrics"
)

// DefaultSize is the canonical output size used when callers omit one.
const DefaultSize = "1024x1024"

var (
	// ErrMissingAPIKey indicates that neither the request nor the client
	// configuration carried a credential.
	ErrMissingAPIKey = errors.New("openai: api key is required")

	// ErrEmptyResult indicates a successful upstream response without a
	// single usable image entry.
	ErrEmptyResult = errors.New("openai: empty result from provider")
)

// UpstreamError reports a non-2xx provider response. Status and raw body
// are preserved for diagnostics.
type UpstreamError struct {
	Status  int
	Body    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openai: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("openai: status %d: %s", e.Status, e.Body)
}

// Inliner re-encodes a hosted image URL as an inline data URL.
type Inliner interface {
	InlineFromURL(ctx context.Context, imageURL string) (string, error)
}

// Options configures the client.
type Options struct {
	APIKey         string // server-level fallback, per-call keys win
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	RequestTimeout time.Duration
	Inliner        Inliner
}

// Client performs HTTP calls against the provider's images endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
	inliner    Inliner
}

// Image is a normalized transformation result.
type Image struct {
	DataURL       string
	RevisedPrompt string
	Created       int64
}

// GenerateRequest captures the inputs for prompt-only generation.
type GenerateRequest struct {
	APIKey string
	Prompt string
	N      int
	Size   string
}

// EditRequest captures the inputs for transforming an existing image.
type EditRequest struct {
	APIKey string
	Image  *imagesource.Payload
	Mask   *imagesource.Payload
	Prompt string
	Size   string
}

type generationPayload struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imagesResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url"`
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	inliner := opts.Inliner
	if inliner == nil {
		inliner = imagesource.NewResolver(imagesource.Options{
			HTTPClient: httpClient,
			Logger:     opts.Logger,
		})
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      strings.TrimSpace(opts.Model),
		httpClient: httpClient,
		logger:     opts.Logger,
		inliner:    inliner,
	}
}

// Generate invokes the generations endpoint once and returns all normalized
// results in provider order.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) ([]Image, error) {
	apiKey, err := c.resolveKey(req.APIKey)
	if err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("openai: prompt is required")
	}
	n := req.N
	if n < 1 {
		n = 1
	}
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = DefaultSize
	}
	body, err := json.Marshal(generationPayload{Model: c.model, Prompt: prompt, N: n, Size: size})
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}
	decoded, err := c.post(ctx, "/images/generations", "application/json", bytes.NewReader(body), apiKey)
	if err != nil {
		return nil, err
	}
	images, err := c.normalize(ctx, decoded)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Int("count", len(images)).Str("size", size).Msg("openai: generated images")
	return images, nil
}

// Edit invokes the edits endpoint once and returns a single normalized
// result. The mask is optional.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*Image, error) {
	apiKey, err := c.resolveKey(req.APIKey)
	if err != nil {
		return nil, err
	}
	if req.Image == nil || len(req.Image.Data) == 0 {
		return nil, errors.New("openai: source image is required")
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("openai: prompt is required")
	}
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = DefaultSize
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if err := writeFilePart(mw, "image", req.Image); err != nil {
		return nil, err
	}
	if req.Mask != nil && len(req.Mask.Data) > 0 {
		if err := writeFilePart(mw, "mask", req.Mask); err != nil {
			return nil, err
		}
	}
	fields := map[string]string{"prompt": prompt, "n": "1", "size": size}
	if c.model != "" {
		fields["model"] = c.model
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("openai: write form field %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("openai: finalize form: %w", err)
	}

	decoded, err := c.post(ctx, "/images/edits", mw.FormDataContentType(), buf, apiKey)
	if err != nil {
		return nil, err
	}
	images, err := c.normalize(ctx, decoded)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("size", size).Msg("openai: edited image")
	return &images[0], nil
}

func (c *Client) resolveKey(requestKey string) (string, error) {
	if key := strings.TrimSpace(requestKey); key != "" {
		return key, nil
	}
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	return "", ErrMissingAPIKey
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, apiKey string) (*imagesResponse, error) {
	endpoint := path[strings.LastIndex(path, "/")+1:]
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		upstream := &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		var detail imagesResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error != nil {
			upstream.Message = detail.Error.Message
		}
		return nil, upstream
	}
	metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	var decoded imagesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	return &decoded, nil
}

// normalize converts provider entries into inline data URLs. Base64 entries
// wrap directly; locator entries are fetched and re-encoded.
func (c *Client) normalize(ctx context.Context, decoded *imagesResponse) ([]Image, error) {
	images := make([]Image, 0, len(decoded.Data))
	for _, entry := range decoded.Data {
		img := Image{RevisedPrompt: entry.RevisedPrompt, Created: decoded.Created}
		switch {
		case entry.B64JSON != "":
			img.DataURL = "data:image/png;base64," + entry.B64JSON
		case entry.URL != "":
			dataURL, err := c.inliner.InlineFromURL(ctx, entry.URL)
			if err != nil {
				return nil, err
			}
			img.DataURL = dataURL
		default:
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}
	return images, nil
}

func writeFilePart(mw *multipart.Writer, field string, payload *imagesource.Payload) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, field+fileExt(payload.ContentType)))
	header.Set("Content-Type", payload.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("openai: create form part %s: %w", field, err)
	}
	if _, err := part.Write(payload.Data); err != nil {
		return fmt.Errorf("openai: write form part %s: %w", field, err)
	}
	return nil
}

func fileExt(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
