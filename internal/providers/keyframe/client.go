// Package keyframe generates still conditioning images for scenes through the
// DashScope Qwen text-to-image API.
package keyframe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studio/internal/capability"
	"studio/internal/domain"
	"studio/internal/infra"
)

const (
	defaultBaseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	defaultModel   = "qwen-image-plus"
	generationPath = "/services/aigc/multimodal-generation/generation"
)

// Output sizes accepted by qwen-image, keyed by aspect ratio.
var sizes = map[string]string{
	capability.AspectLandscape: "1664*928",
	capability.AspectPortrait:  "928*1664",
	capability.AspectSquare:    "1328*1328",
}

type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client calls DashScope and downloads the produced image.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// Request describes one keyframe.
type Request struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Seed           int
}

// Image is a downloaded keyframe.
type Image struct {
	Data        []byte
	ContentType string
	SourceURL   string
	Width       int
	Height      int
}

type generationRequest struct {
	Model      string           `json:"model"`
	Input      generationInput  `json:"input"`
	Parameters generationParams `json:"parameters"`
}

type generationInput struct {
	Messages []generationMessage `json:"messages"`
}

type generationMessage struct {
	Role    string              `json:"role"`
	Content []generationContent `json:"content"`
}

type generationContent struct {
	Text string `json:"text,omitempty"`
}

type generationParams struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size"`
	Watermark      bool   `json:"watermark"`
	Seed           *int   `json:"seed,omitempty"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     infra.OrDiscard(opts.Logger),
	}
}

func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

// Size maps an aspect ratio to a supported output size, defaulting to
// landscape.
func Size(aspect string) string {
	if size, ok := sizes[strings.TrimSpace(aspect)]; ok {
		return size
	}
	return sizes[capability.DefaultAspect]
}

// Generate produces one keyframe and returns its bytes.
func (c *Client) Generate(ctx context.Context, req Request) (*Image, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("keyframe: %w", domain.ErrMissingCredentials)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("keyframe: prompt is required: %w", domain.ErrInvalidInput)
	}
	payload := generationRequest{
		Model: c.model,
		Input: generationInput{Messages: []generationMessage{{
			Role:    "user",
			Content: []generationContent{{Text: prompt}},
		}}},
		Parameters: generationParams{
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
			Size:           Size(req.AspectRatio),
		},
	}
	if req.Seed > 0 {
		seed := req.Seed
		payload.Parameters.Seed = &seed
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("keyframe: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generationPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("keyframe: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("keyframe: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("keyframe: read response: %w", err)
	}

	var decoded generationResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.Message != "" {
			return nil, fmt.Errorf("keyframe: %s (%s): %w", decoded.Message, decoded.Code, domain.ErrProviderFailure)
		}
		return nil, fmt.Errorf("keyframe: status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("keyframe: decode response: %w", decodeErr)
	}
	if decoded.Code != "" {
		return nil, fmt.Errorf("keyframe: %s (%s): %w", decoded.Message, decoded.Code, domain.ErrProviderFailure)
	}
	imageURL := firstImageURL(decoded)
	if imageURL == "" {
		return nil, fmt.Errorf("keyframe: empty image url: %w", domain.ErrProviderFailure)
	}
	img, err := c.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("request_id", decoded.RequestID).
		Int("width", img.Width).
		Int("height", img.Height).
		Msg("keyframe: generated")
	return img, nil
}

func (c *Client) download(ctx context.Context, imageURL string) (*Image, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("keyframe: invalid image url %q", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("keyframe: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keyframe: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("keyframe: download status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("keyframe: read image: %w", err)
	}
	img := &Image{Data: data, ContentType: resp.Header.Get("Content-Type"), SourceURL: imageURL}
	if img.ContentType == "" {
		img.ContentType = "image/png"
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width, img.Height = cfg.Width, cfg.Height
	}
	return img, nil
}

func firstImageURL(resp generationResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if u := strings.TrimSpace(content.Image); u != "" {
				return u
			}
		}
	}
	return ""
}

// ScenePrompt composes the still-frame prompt for a scene from its visual
// fields.
func ScenePrompt(scene domain.Scene) string {
	parts := []string{strings.TrimSpace(scene.Prompt)}
	if v := strings.TrimSpace(scene.CameraAngle); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(scene.Lighting); v != "" {
		parts = append(parts, v+" lighting")
	}
	parts = append(parts, "cinematic still frame, no text")
	return strings.Join(parts, ", ")
}
