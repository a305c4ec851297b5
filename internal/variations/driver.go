// Package variations turns one source image into a set of attribute-driven
// edits, e.g. the same product recolored across a palette.
package variations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"colorway/internal/imagesource"
	"colorway/internal/providers/openai"
)

// Transformer is the single upstream operation the driver needs.
type Transformer interface {
	Edit(ctx context.Context, req openai.EditRequest) (*openai.Image, error)
}

// Policy fixes the per-caller defaulting rules and instruction wording.
// Template must contain exactly one %s for the attribute value.
type Policy struct {
	Defaults   []string
	MaxDefault int // caps the default count when > 0; explicit counts are never capped
	Template   string
}

// Recolor produces straight color swaps over the full default palette.
var Recolor = Policy{
	Defaults: defaultColors,
	Template: "Recolor the product to %s. Keep the original shape, texture, lighting, and background unchanged.",
}

// Visualize restyles the product across color stories, at most six by default.
var Visualize = Policy{
	Defaults:   defaultPalettes,
	MaxDefault: 6,
	Template:   "Present the product in a %s color story. Keep the product recognizable and the composition clean.",
}

// Request is one variation run over an already-resolved source image.
// Count nil means the policy default; an explicit non-negative count is
// honored as-is, including zero.
type Request struct {
	Source     *imagesource.Payload
	APIKey     string
	Attributes []string
	Count      *int
	Size       string
}

// Variation binds an attribute value to its transformation result.
type Variation struct {
	Value string
	Label string
	Image openai.Image
}

// Driver sequences the per-attribute edits.
type Driver struct {
	transformer Transformer
	logger      zerolog.Logger
}

func NewDriver(transformer Transformer, logger zerolog.Logger) *Driver {
	return &Driver{transformer: transformer, logger: logger}
}

// Produce runs count edits over the same source, cycling through the
// attribute list, and fails fast on the first upstream error. Results keep
// generation order.
func (d *Driver) Produce(ctx context.Context, policy Policy, req Request) ([]Variation, error) {
	attrs := cleanAttributes(req.Attributes)
	if len(attrs) == 0 {
		attrs = policy.Defaults
	}
	if len(attrs) == 0 {
		return nil, errors.New("variations: no attributes available")
	}
	count := resolveCount(req.Count, len(attrs), policy.MaxDefault)
	title := cases.Title(language.English)

	out := make([]Variation, 0, count)
	for i := 0; i < count; i++ {
		value := attrs[i%len(attrs)]
		img, err := d.transformer.Edit(ctx, openai.EditRequest{
			APIKey: req.APIKey,
			Image:  req.Source,
			Prompt: fmt.Sprintf(policy.Template, value),
			Size:   req.Size,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, Variation{Value: value, Label: title.String(value), Image: *img})
	}
	d.logger.Debug().Int("count", len(out)).Msg("variations: produced set")
	return out, nil
}

func cleanAttributes(attrs []string) []string {
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func resolveCount(explicit *int, listLen, maxDefault int) int {
	if explicit != nil && *explicit >= 0 {
		return *explicit
	}
	count := listLen
	if maxDefault > 0 && count > maxDefault {
		count = maxDefault
	}
	return count
}
