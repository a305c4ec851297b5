// Package imagesource resolves caller-supplied image references, either
// inline base64 payloads or remote URLs, into raw bytes for upstream calls.
package imagesource

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultContentType = "image/png"

var (
	// ErrMissingInput is returned when a request carries neither inline
	// image data nor a remote URL.
	ErrMissingInput = errors.New("imagesource: image_base64 or image_url is required")

	// ErrInvalidInput is returned when the supplied reference cannot be
	// decoded, e.g. malformed base64 or an unparseable URL.
	ErrInvalidInput = errors.New("imagesource: invalid image input")
)

// FetchError reports a remote image fetch that came back non-2xx.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("imagesource: fetch %s: status %d", e.URL, e.Status)
}

// Payload is a resolved source image.
type Payload struct {
	Data        []byte
	ContentType string
}

// Input names the two accepted image sources. Inline data wins when both
// are present.
type Input struct {
	Base64 string
	URL    string
}

type Options struct {
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	Logger       zerolog.Logger
}

// Resolver turns image references into payloads. It performs at most one
// fetch per call and never retries.
type Resolver struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewResolver(opts Options) *Resolver {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Resolver{httpClient: client, logger: opts.Logger}
}

// Resolve returns the bytes behind in. Exactly one of the two sources must
// be set; inline data is checked first.
func (r *Resolver) Resolve(ctx context.Context, in Input) (*Payload, error) {
	if b64 := strings.TrimSpace(in.Base64); b64 != "" {
		return decodeInline(b64)
	}
	if u := strings.TrimSpace(in.URL); u != "" {
		return r.fetch(ctx, u)
	}
	return nil, ErrMissingInput
}

// InlineFromURL fetches a remote image and re-encodes it as a data URL.
// Upstream results that arrive as locators go through here.
func (r *Resolver) InlineFromURL(ctx context.Context, imageURL string) (string, error) {
	payload, err := r.fetch(ctx, imageURL)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(payload.ContentType, payload.Data), nil
}

func (r *Resolver) fetch(ctx context.Context, imageURL string) (*Payload, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: bad url %q", ErrInvalidInput, imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("imagesource: build fetch request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagesource: fetch %s: %w", parsed.String(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &FetchError{URL: parsed.String(), Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imagesource: read image: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	r.logger.Debug().Str("url", parsed.String()).Int("bytes", len(data)).Msg("resolved remote image")
	return &Payload{Data: data, ContentType: contentType}, nil
}

func decodeInline(b64 string) (*Payload, error) {
	contentType := defaultContentType
	if strings.HasPrefix(b64, "data:") {
		meta, rest, ok := strings.Cut(b64[len("data:"):], ",")
		if !ok {
			return nil, fmt.Errorf("%w: malformed data url", ErrInvalidInput)
		}
		if ct := strings.TrimSuffix(meta, ";base64"); ct != "" {
			contentType = ct
		}
		b64 = rest
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &Payload{Data: data, ContentType: contentType}, nil
}

// EncodeDataURL wraps raw image bytes as an inline data URL.
func EncodeDataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = defaultContentType
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL is the inverse of EncodeDataURL. Bare base64 without a
// data: prefix is accepted and assumed to be a PNG.
func DecodeDataURL(s string) (string, []byte, error) {
	payload, err := decodeInline(strings.TrimSpace(s))
	if err != nil {
		return "", nil, err
	}
	return payload.ContentType, payload.Data, nil
}
