package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiOptions struct {
	APIKey     string
	Model      string
	Fallback   ScreenplayWriter
	OnFallback func(reason string, err error)
}

// contentGenerator is the slice of the genai client the writer needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiWriter requests a JSON scene breakdown from a Gemini text model.
type GeminiWriter struct {
	models     contentGenerator
	model      string
	fallback   ScreenplayWriter
	onFallback func(reason string, err error)
}

func NewGeminiWriter(ctx context.Context, opts GeminiOptions) (*GeminiWriter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(opts.APIKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return newGeminiWriter(client.Models, opts), nil
}

func newGeminiWriter(models contentGenerator, opts GeminiOptions) *GeminiWriter {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticWriter()
	}
	return &GeminiWriter{
		models:     models,
		model:      model,
		fallback:   fallback,
		onFallback: opts.OnFallback,
	}
}

func (g *GeminiWriter) Breakdown(ctx context.Context, brief Brief) ([]SceneDraft, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(buildBreakdownPrompt(brief)), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.6),
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return g.useFallback(ctx, brief, "http_request", err)
	}
	text := extractText(resp)
	if text == "" {
		return g.useFallback(ctx, brief, "empty_response", errors.New("empty response"))
	}
	parsed, err := parseModelPayload[modelBreakdownPayload](text)
	if err != nil {
		return g.useFallback(ctx, brief, "parse_payload", err)
	}
	drafts := normalizeDrafts(parsed.Scenes, geminiProviderName, sceneCount(brief))
	if len(drafts) == 0 {
		return g.useFallback(ctx, brief, "empty_scenes", errEmptyBreakdown)
	}
	return drafts, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func (g *GeminiWriter) useFallback(ctx context.Context, brief Brief, reason string, cause error) ([]SceneDraft, error) {
	if g.onFallback != nil {
		g.onFallback(reason, cause)
	}
	drafts, err := g.fallback.Breakdown(ctx, brief)
	for i := range drafts {
		drafts[i].Provider = staticProviderName
	}
	return drafts, err
}

var _ ScreenplayWriter = (*GeminiWriter)(nil)
