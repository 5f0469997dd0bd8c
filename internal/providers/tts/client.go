// Package tts synthesizes scene narration through the ElevenLabs API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Options configures the text-to-speech client.
type Options struct {
	APIKey         string
	BaseURL        string
	VoiceID        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the text-to-speech endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	voiceID    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// Audio is synthesized speech.
type Audio struct {
	Data        []byte
	ContentType string
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type errorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

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
		baseURL = "https://api.elevenlabs.io/v1"
	}
	voice := strings.TrimSpace(opts.VoiceID)
	if voice == "" {
		voice = "21m00Tcm4TlvDq8ikWAM"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		voiceID:    voice,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Synthesize converts text to MP3 speech with the configured voice, or with
// voiceID when it is not empty.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("tts: %w", domain.ErrMissingCredentials)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("tts: text is required")
	}
	voice := strings.TrimSpace(voiceID)
	if voice == "" {
		voice = c.voiceID
	}
	body, err := json.Marshal(synthesisRequest{
		Text:          text,
		ModelID:       c.model,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}
	endpoint := c.baseURL + "/text-to-speech/" + url.PathEscape(voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail.Message != "" {
			return nil, fmt.Errorf("tts: %s (%s): %w", detail.Detail.Message, detail.Detail.Status, domain.ErrProviderFailure)
		}
		return nil, fmt.Errorf("tts: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProviderFailure)
	}
	if len(raw) == 0 {
		return nil, errors.New("tts: empty audio")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	c.logger.Debug().
		Str("voice", voice).
		Int("chars", len(text)).
		Int("bytes", len(raw)).
		Msg("tts: synthesized narration")
	return &Audio{Data: raw, ContentType: contentType}, nil
}
