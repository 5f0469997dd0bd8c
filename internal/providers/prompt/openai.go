package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	MaxRetries   int
	Fallback     ScreenplayWriter
	OnFallback   func(reason string, err error)
	OnWarning    func(reason, detail string)
}

// OpenAIWriter asks a chat model for a scene breakdown constrained by a JSON
// schema and degrades to its fallback writer on any failure.
type OpenAIWriter struct {
	client     openai.Client
	model      string
	fallback   ScreenplayWriter
	onFallback func(reason string, err error)
}

const openAIDefaultTimeout = 45 * time.Second

const defaultOpenAIModel = openai.ChatModelGPT4oMini

var openAIModelCanonical = map[string]string{
	"gpt-4o-mini": openai.ChatModelGPT4oMini,
	"gpt-4o":      openai.ChatModelGPT4o,
	"gpt-4.1":     openai.ChatModelGPT4_1,
}

var openAIModelAliases = map[string]string{
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4o":                  "gpt-4o",
	"gpt-4-1":                "gpt-4.1",
	"gpt4.1":                 "gpt-4.1",
}

var breakdownSchema = generateSchema[modelBreakdownPayload]()

func generateSchema[T any]() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func NewOpenAIWriter(opts OpenAIOptions) (*OpenAIWriter, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	modelInput := strings.TrimSpace(opts.Model)
	model, reason := normalizeOpenAIModel(modelInput)
	if reason != "" && opts.OnWarning != nil {
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", coalesce(modelInput, defaultOpenAIModel), model))
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: openAIDefaultTimeout}
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	if org := strings.TrimSpace(opts.Organization); org != "" {
		clientOpts = append(clientOpts, option.WithOrganization(org))
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticWriter()
	}
	return &OpenAIWriter{
		client:     openai.NewClient(clientOpts...),
		model:      model,
		fallback:   fallback,
		onFallback: opts.OnFallback,
	}, nil
}

func (o *OpenAIWriter) Breakdown(ctx context.Context, brief Brief) ([]SceneDraft, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       o.model,
		Temperature: openai.Float(0.7),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a screenwriter that only responds with valid JSON."),
			openai.UserMessage(buildBreakdownPrompt(brief)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "scene_breakdown",
					Description: openai.String("Ordered scenes of a short film"),
					Schema:      breakdownSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return o.useFallback(ctx, brief, fmt.Sprintf("http_%d", apiErr.StatusCode), err)
		}
		return o.useFallback(ctx, brief, "http_request", err)
	}
	if len(completion.Choices) == 0 {
		return o.useFallback(ctx, brief, "empty_choices", errors.New("no choices"))
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return o.useFallback(ctx, brief, "empty_response", errors.New("empty response"))
	}
	parsed, err := parseModelPayload[modelBreakdownPayload](text)
	if err != nil {
		return o.useFallback(ctx, brief, "parse_payload", err)
	}
	drafts := normalizeDrafts(parsed.Scenes, openAIProviderName, sceneCount(brief))
	if len(drafts) == 0 {
		return o.useFallback(ctx, brief, "empty_scenes", errEmptyBreakdown)
	}
	return drafts, nil
}

func (o *OpenAIWriter) useFallback(ctx context.Context, brief Brief, reason string, cause error) ([]SceneDraft, error) {
	if o.onFallback != nil {
		o.onFallback(reason, cause)
	}
	drafts, err := o.fallback.Breakdown(ctx, brief)
	for i := range drafts {
		if drafts[i].Provider == "" {
			drafts[i].Provider = staticProviderName
		}
	}
	return drafts, err
}

var _ ScreenplayWriter = (*OpenAIWriter)(nil)

func normalizeOpenAIModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := openAIModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := openAIModelAliases[normalized]; ok {
		return openAIModelCanonical[alias], "alias"
	}
	return defaultOpenAIModel, "defaulted"
}
