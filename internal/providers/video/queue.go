package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studio/internal/infra"
)

// QueueOptions configures the hosted inference queue client.
type QueueOptions struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// QueueClient talks to a fal-style request queue: POST to the model path,
// then GET {app}/requests/{id}/status and {app}/requests/{id}.
type QueueClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type queueSubmitResponse struct {
	RequestID string `json:"request_id"`
}

type queueStatusResponse struct {
	Status        string `json:"status"`
	QueuePosition *int   `json:"queue_position,omitempty"`
	Error         string `json:"error,omitempty"`
}

type queueResultResponse struct {
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
}

func NewQueueClient(opts QueueOptions) *QueueClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://queue.fal.run"
	}
	return &QueueClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     discardLogger(opts.Logger),
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *QueueClient) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit enqueues payload on modelPath and returns the request id.
func (c *QueueClient) Submit(ctx context.Context, provider, modelPath string, payload any) (string, error) {
	if !c.HasCredentials() {
		return "", missingKey(provider)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%s: encode request: %w", provider, err)
	}
	raw, err := c.do(ctx, provider, OpSubmit, http.MethodPost, c.baseURL+"/"+modelPath, body)
	if err != nil {
		return "", err
	}
	var decoded queueSubmitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%s: decode submit response: %w", provider, err)
	}
	if decoded.RequestID == "" {
		return "", &ProviderError{Provider: provider, Op: OpSubmit, Body: "empty request id"}
	}
	c.logger.Debug().
		Str("provider", provider).
		Str("model", modelPath).
		Str("request_id", decoded.RequestID).
		Msg("video: queued generation request")
	return decoded.RequestID, nil
}

// Status returns the normalized status of request id under app.
func (c *QueueClient) Status(ctx context.Context, provider, app, id string) (StatusReport, error) {
	if !c.HasCredentials() {
		return StatusReport{}, missingKey(provider)
	}
	raw, err := c.do(ctx, provider, OpStatus, http.MethodGet, c.requestURL(app, id)+"/status", nil)
	if err != nil {
		return StatusReport{}, err
	}
	var decoded queueStatusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return StatusReport{}, fmt.Errorf("%s: decode status response: %w", provider, err)
	}
	report := StatusReport{Status: queueStatus(decoded.Status), Raw: decoded.Status, Detail: decoded.Error}
	if decoded.Error != "" {
		report.Status = StatusFailed
	}
	return report, nil
}

// Result fetches the output video of a completed request.
func (c *QueueClient) Result(ctx context.Context, provider, app, id string) (Result, error) {
	if !c.HasCredentials() {
		return Result{}, missingKey(provider)
	}
	raw, err := c.do(ctx, provider, OpResult, http.MethodGet, c.requestURL(app, id), nil)
	if err != nil {
		return Result{}, err
	}
	var decoded queueResultResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, fmt.Errorf("%s: decode result response: %w", provider, err)
	}
	if decoded.Video.URL == "" {
		return Result{}, &ProviderError{Provider: provider, Op: OpResult, Body: "empty video url"}
	}
	return Result{VideoURL: decoded.Video.URL}, nil
}

func (c *QueueClient) requestURL(app, id string) string {
	return c.baseURL + "/" + app + "/requests/" + id
}

func (c *QueueClient) do(ctx context.Context, provider, op, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http request: %w", provider, err)
	}
	defer resp.Body.Close()

	text, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", provider, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &ProviderError{Provider: provider, Op: op, StatusCode: resp.StatusCode, Body: text}
	}
	return []byte(text), nil
}

func queueStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IN_QUEUE":
		return StatusPending
	case "IN_PROGRESS":
		return StatusGenerating
	case "COMPLETED", "OK":
		return StatusCompleted
	case "FAILED", "ERROR", "CANCELLED":
		return StatusFailed
	default:
		return StatusPending
	}
}

// queueApp is the first two segments of a model path, which is where the
// queue exposes status and result routes.
func queueApp(modelPath string) string {
	parts := strings.SplitN(strings.Trim(modelPath, "/"), "/", 3)
	if len(parts) < 2 {
		return strings.Trim(modelPath, "/")
	}
	return parts[0] + "/" + parts[1]
}

// queueAdapter is the shared skeleton of every queue-hosted provider.
type queueAdapter struct {
	name      string
	textPath  string
	imagePath string
	client    *QueueClient
	payload   func(Request) any
	// seconds reports the billed clip length; nil means the request's.
	seconds func(Request) int
}

func (a *queueAdapter) Name() string { return a.name }

func (a *queueAdapter) Submit(ctx context.Context, req Request) (Submission, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Submission{}, errors.New(a.name + ": prompt is required")
	}
	path := a.textPath
	if req.HasImage() {
		path = a.imagePath
	}
	id, err := a.client.Submit(ctx, a.name, path, a.payload(req))
	if err != nil {
		return Submission{}, err
	}
	return Submission{Provider: a.name, ExternalID: id, Duration: a.billedSeconds(req)}, nil
}

func (a *queueAdapter) billedSeconds(req Request) int {
	if a.seconds == nil {
		return req.Duration
	}
	return a.seconds(req)
}

func (a *queueAdapter) CheckStatus(ctx context.Context, externalID string) (StatusReport, error) {
	return a.client.Status(ctx, a.name, queueApp(a.textPath), externalID)
}

func (a *queueAdapter) FetchResult(ctx context.Context, externalID string) (Result, error) {
	return a.client.Result(ctx, a.name, queueApp(a.textPath), externalID)
}

func optionalSeed(seed int) *int {
	if seed <= 0 {
		return nil
	}
	return &seed
}
