package copywriter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"podstudio/internal/infra"
)

// maxNameRunes caps drafted names; store listings reject longer titles.
const maxNameRunes = 120

// contentGenerator is the slice of *genai.Models the copywriter needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiOptions struct {
	APIKey   string
	Model    string
	Fallback Copywriter
	Logger   *infra.Logger
}

// GeminiCopywriter asks a Gemini text model for a JSON draft and falls back
// to another Copywriter when the call fails or returns nothing usable.
type GeminiCopywriter struct {
	models   contentGenerator
	model    string
	fallback Copywriter
	logger   *infra.Logger
}

func NewGeminiCopywriter(ctx context.Context, opts GeminiOptions) (*GeminiCopywriter, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("copywriter: gemini api key is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("copywriter: init gemini: %w", err)
	}
	return newGeminiCopywriter(cli.Models, opts), nil
}

func newGeminiCopywriter(models contentGenerator, opts GeminiOptions) *GeminiCopywriter {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticCopywriter()
	}
	return &GeminiCopywriter{
		models:   models,
		model:    model,
		fallback: fallback,
		logger:   infra.LoggerOrDiscard(opts.Logger),
	}
}

func (g *GeminiCopywriter) Draft(ctx context.Context, req Request) (Draft, error) {
	draft, err := g.generate(ctx, req)
	if err == nil {
		return draft, nil
	}
	g.logger.Warn().Err(err).Str("model", g.model).Msg("copywriter: gemini draft failed; using fallback")
	return g.fallback.Draft(ctx, req)
}

func (g *GeminiCopywriter) generate(ctx context.Context, req Request) (Draft, error) {
	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: buildPrompt(req)}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return Draft{}, err
	}
	if resp == nil {
		return Draft{}, errors.New("empty response")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Draft{}, errors.New("empty response")
	}

	var out Draft
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	out.Name = strings.TrimSpace(out.Name)
	out.Description = strings.TrimSpace(out.Description)
	if out.Name == "" {
		return Draft{}, errors.New("draft without name")
	}
	if r := []rune(out.Name); len(r) > maxNameRunes {
		out.Name = strings.TrimSpace(string(r[:maxNameRunes]))
	}
	out.Provider = geminiProviderName
	return out, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Write a store listing for a print-on-demand product. ")
	b.WriteString(`Respond with JSON {"name": string, "description": string}. `)
	b.WriteString("The name must be under 60 characters.\n")
	if req.ProductTitle != "" {
		fmt.Fprintf(&b, "Product: %s\n", req.ProductTitle)
	}
	if req.VariantName != "" {
		fmt.Fprintf(&b, "Variant: %s\n", req.VariantName)
	}
	if req.Color != "" {
		fmt.Fprintf(&b, "Color: %s\n", req.Color)
	}
	if len(req.Placements) > 0 {
		fmt.Fprintf(&b, "Printed on: %s\n", strings.Join(req.Placements, ", "))
	}
	if req.Hint != "" {
		fmt.Fprintf(&b, "Design theme: %s\n", req.Hint)
	}
	if normalizeLocale(req.Locale) == "id" {
		b.WriteString("Write in Indonesian.")
	} else {
		b.WriteString("Write in English.")
	}
	return b.String()
}
