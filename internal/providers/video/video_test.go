package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"google.golang.org/genai"

	"studio/internal/domain"
)

type captureTransport struct {
	responses map[string]responseStub
	requests  []*http.Request
	bodies    [][]byte
}

type responseStub struct {
	status int
	body   []byte
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{responses: map[string]responseStub{}}
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		body = raw
	}
	c.requests = append(c.requests, req)
	c.bodies = append(c.bodies, body)
	if stub, ok := c.responses[req.Method+" "+req.URL.Path]; ok {
		return &http.Response{
			StatusCode: stub.status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(bytes.NewReader(stub.body)),
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSON(method, path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[method+" "+path] = responseStub{status: status, body: body}
}

func (c *captureTransport) lastPayload(t *testing.T) map[string]any {
	t.Helper()
	for i := len(c.bodies) - 1; i >= 0; i-- {
		if len(c.bodies[i]) == 0 {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(c.bodies[i], &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		return payload
	}
	t.Fatal("no payload captured")
	return nil
}

func newQueue(transport *captureTransport, key string) *QueueClient {
	return NewQueueClient(QueueOptions{
		APIKey:     key,
		BaseURL:    "https://queue.test",
		HTTPClient: &http.Client{Transport: transport},
	})
}

func TestWanLifecycle(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSON(http.MethodPost, "/"+wanTextPath, http.StatusOK, map[string]any{"request_id": "req-1"})
	transport.setJSON(http.MethodGet, "/fal-ai/wan/requests/req-1/status", http.StatusAccepted, map[string]any{"status": "IN_PROGRESS"})
	transport.setJSON(http.MethodGet, "/fal-ai/wan/requests/req-1", http.StatusOK, map[string]any{"video": map[string]any{"url": "https://cdn.test/wan.mp4"}})

	adapter := NewWanAdapter(newQueue(transport, "secret"))
	ctx := context.Background()

	sub, err := adapter.Submit(ctx, Request{Prompt: "a lighthouse at dusk", Duration: 10, AspectRatio: "16:9", Style: "anime", Seed: 7})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.ExternalID != "req-1" || sub.Provider != "wan" {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if got := transport.requests[0].Header.Get("Authorization"); got != "Key secret" {
		t.Fatalf("authorization = %q", got)
	}
	payload := transport.lastPayload(t)
	if payload["num_frames"] != float64(161) {
		t.Fatalf("num_frames = %v, want 161", payload["num_frames"])
	}
	if payload["prompt"] != "a lighthouse at dusk, anime style" {
		t.Fatalf("prompt = %v", payload["prompt"])
	}
	if payload["seed"] != float64(7) {
		t.Fatalf("seed = %v", payload["seed"])
	}
	if _, ok := payload["image_url"]; ok {
		t.Fatal("image_url should be omitted for text-to-video")
	}

	report, err := adapter.CheckStatus(ctx, "req-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if report.Status != StatusGenerating {
		t.Fatalf("status = %s, want generating", report.Status)
	}

	result, err := adapter.FetchResult(ctx, "req-1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.VideoURL != "https://cdn.test/wan.mp4" {
		t.Fatalf("video url = %s", result.VideoURL)
	}
}

func TestKlingImageToVideoPayload(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSON(http.MethodPost, "/"+klingImagePath, http.StatusOK, map[string]any{"request_id": "k-1"})

	adapter := NewKlingAdapter(newQueue(transport, "secret"))
	_, err := adapter.Submit(context.Background(), Request{
		Prompt:         "car chase through the market",
		ImageURL:       "https://cdn.test/frame.png",
		Duration:       10,
		AspectRatio:    "16:9",
		CameraMovement: "Zoom In",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	payload := transport.lastPayload(t)
	if payload["duration"] != "10" {
		t.Fatalf("duration = %v, want 10", payload["duration"])
	}
	if payload["camera_control"] != "forward_up" {
		t.Fatalf("camera_control = %v", payload["camera_control"])
	}
	if _, ok := payload["aspect_ratio"]; ok {
		t.Fatal("aspect_ratio should follow the source image")
	}
	if payload["image_url"] != "https://cdn.test/frame.png" {
		t.Fatalf("image_url = %v", payload["image_url"])
	}
}

func TestKlingDurationSnaps(t *testing.T) {
	cases := map[int]int{1: 5, 5: 5, 6: 10, 10: 10}
	for in, want := range cases {
		if got := klingSeconds(in); got != want {
			t.Fatalf("klingSeconds(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSubmissionReportsBilledDuration(t *testing.T) {
	transport := newCaptureTransport()
	for _, path := range []string{klingTextPath, hailuoTextPath, wanTextPath} {
		transport.setJSON(http.MethodPost, "/"+path, http.StatusOK, map[string]any{"request_id": "r-1"})
	}
	q := newQueue(transport, "secret")
	ctx := context.Background()

	cases := []struct {
		adapter   Adapter
		requested int
		want      int
	}{
		{NewKlingAdapter(q), 7, 10},
		{NewKlingAdapter(q), 3, 5},
		{NewHailuoAdapter(q), 4, 6},
		{NewHailuoAdapter(q), 8, 10},
		{NewWanAdapter(q), 4, 4},
	}
	for _, tc := range cases {
		sub, err := tc.adapter.Submit(ctx, Request{Prompt: "a lantern in the rain", Duration: tc.requested})
		if err != nil {
			t.Fatalf("%s submit: %v", tc.adapter.Name(), err)
		}
		if sub.Duration != tc.want {
			t.Fatalf("%s: billed %d for %ds, want %d", tc.adapter.Name(), sub.Duration, tc.requested, tc.want)
		}
	}
}

func TestLTXFrames(t *testing.T) {
	payload := ltxRequest(Request{Prompt: "rain", Duration: 5}).(ltxPayload)
	if payload.NumFrames != 121 || payload.FrameRate != 24 {
		t.Fatalf("unexpected frames %d @ %d", payload.NumFrames, payload.FrameRate)
	}
	if payload.Seed != nil {
		t.Fatal("zero seed should be omitted")
	}
}

func TestMissingKeySkipsNetwork(t *testing.T) {
	transport := newCaptureTransport()
	adapter := NewLTXAdapter(newQueue(transport, ""))
	_, err := adapter.Submit(context.Background(), Request{Prompt: "x", Duration: 3})
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if len(transport.requests) != 0 {
		t.Fatalf("expected no http calls, got %d", len(transport.requests))
	}
}

func TestProviderErrorsClassify(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSON(http.MethodPost, "/"+hailuoTextPath, http.StatusUnprocessableEntity, map[string]any{"detail": "prompt too long"})
	transport.setJSON(http.MethodGet, "/fal-ai/minimax/requests/h-1/status", http.StatusBadGateway, map[string]any{"detail": "upstream"})

	adapter := NewHailuoAdapter(newQueue(transport, "secret"))
	ctx := context.Background()

	_, err := adapter.Submit(ctx, Request{Prompt: "a woman smiling", Duration: 6})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected provider error with 422, got %v", err)
	}
	if !errors.Is(err, domain.ErrSubmission) {
		t.Fatalf("submit failure should unwrap to ErrSubmission: %v", err)
	}

	_, err = adapter.CheckStatus(ctx, "h-1")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("status failure should unwrap to ErrProviderFailure: %v", err)
	}
}

func TestQueueStatusVocabulary(t *testing.T) {
	cases := map[string]Status{
		"IN_QUEUE":    StatusPending,
		"IN_PROGRESS": StatusGenerating,
		"COMPLETED":   StatusCompleted,
		"FAILED":      StatusFailed,
		"ERROR":       StatusFailed,
		"":            StatusPending,
	}
	for raw, want := range cases {
		if got := queueStatus(raw); got != want {
			t.Fatalf("queueStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestQueueApp(t *testing.T) {
	cases := map[string]string{
		wanImagePath:   "fal-ai/wan",
		klingTextPath:  "fal-ai/kling-video",
		ltxTextPath:    "fal-ai/ltx-video-13b-distilled",
		hailuoTextPath: "fal-ai/minimax",
	}
	for path, want := range cases {
		if got := queueApp(path); got != want {
			t.Fatalf("queueApp(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestCleanHailuoPrompt(t *testing.T) {
	cases := []struct{ in, want string }{
		{"A woman smiling, 4k, masterpiece, soft light", "A woman smiling, soft light"},
		{"8K close-up portrait, best quality", "close-up portrait"},
		{"old man laughing", "old man laughing"},
		{"Ultra detailed face, hyperrealistic, trending on artstation", "face"},
	}
	for _, tc := range cases {
		if got := CleanHailuoPrompt(tc.in); got != tc.want {
			t.Fatalf("CleanHailuoPrompt(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHailuoDuration(t *testing.T) {
	if got := hailuoRequest(Request{Prompt: "x", Duration: 10}).(hailuoPayload).Duration; got != "10" {
		t.Fatalf("duration = %s, want 10", got)
	}
	if got := hailuoRequest(Request{Prompt: "x", Duration: 4}).(hailuoPayload).Duration; got != "6" {
		t.Fatalf("duration = %s, want 6", got)
	}
}

type fakeSeedance struct {
	created  model.CreateContentGenerationTaskRequest
	status   string
	videoURL string
	errText  string
}

func (f *fakeSeedance) create(ctx context.Context, req model.CreateContentGenerationTaskRequest) (string, error) {
	f.created = req
	return "cgt-1", nil
}

func (f *fakeSeedance) get(ctx context.Context, id string) (seedanceTask, error) {
	return seedanceTask{Status: f.status, VideoURL: f.videoURL, Error: f.errText}, nil
}

func TestSeedanceAdapter(t *testing.T) {
	fake := &fakeSeedance{status: "running"}
	adapter := NewSeedanceAdapter(SeedanceOptions{})
	ctx := context.Background()

	if _, err := adapter.Submit(ctx, Request{Prompt: "x"}); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}

	adapter.tasks = fake
	sub, err := adapter.Submit(ctx, Request{Prompt: "paper boats", ImageURL: "https://cdn.test/a.png", Duration: 8, Seed: 3})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.ExternalID != "cgt-1" || sub.Duration != 10 {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if len(fake.created.Content) != 2 || fake.created.Content[1].ImageURL.URL != "https://cdn.test/a.png" {
		t.Fatalf("expected text and image content, got %+v", fake.created.Content)
	}
	text := *fake.created.Content[0].Text
	if !strings.Contains(text, "--duration 10") || !strings.Contains(text, "--seed 3") {
		t.Fatalf("missing flags in %q", text)
	}

	report, err := adapter.CheckStatus(ctx, "cgt-1")
	if err != nil || report.Status != StatusGenerating {
		t.Fatalf("expected generating, got %+v, %v", report, err)
	}
	fake.status, fake.videoURL = "succeeded", "https://ark.test/v.mp4"
	result, err := adapter.FetchResult(ctx, "cgt-1")
	if err != nil || result.VideoURL != "https://ark.test/v.mp4" {
		t.Fatalf("unexpected result %+v, %v", result, err)
	}
}

func TestSeedanceFailureCarriesTaskError(t *testing.T) {
	fake := &fakeSeedance{status: "failed", errText: "The request failed because the input image may contain sensitive information."}
	adapter := NewSeedanceAdapter(SeedanceOptions{})
	adapter.tasks = fake

	report, err := adapter.CheckStatus(context.Background(), "cgt-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if report.Status != StatusFailed || report.Detail != fake.errText {
		t.Fatalf("expected failure with provider text, got %+v", report)
	}

	fake.status = "running"
	report, _ = adapter.CheckStatus(context.Background(), "cgt-1")
	if report.Detail != "" {
		t.Fatalf("detail should only be set on failure, got %q", report.Detail)
	}
}

func TestSeedancePromptFlags(t *testing.T) {
	got := SeedancePrompt(Request{Prompt: "a fox", Duration: 5, AspectRatio: "9:16", CameraMovement: "static"})
	want := "a fox --resolution 720p --duration 5 --ratio 9:16 --camerafixed true"
	if got != want {
		t.Fatalf("SeedancePrompt = %q, want %q", got, want)
	}
}

type fakeVeo struct {
	cfg        *genai.GenerateVideosConfig
	op         *genai.GenerateVideosOperation
	downloaded []string
}

func (f *fakeVeo) generate(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.cfg = cfg
	return &genai.GenerateVideosOperation{Name: "operations/veo-1"}, nil
}

func (f *fakeVeo) operation(ctx context.Context, name string) (*genai.GenerateVideosOperation, error) {
	return f.op, nil
}

func (f *fakeVeo) download(ctx context.Context, video *genai.Video) ([]byte, error) {
	f.downloaded = append(f.downloaded, video.URI)
	return []byte("mp4-bytes"), nil
}

type memoryBlobs struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryBlobs) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.objects[key] = data
	m.types[key] = contentType
	return "https://media.test/" + key, nil
}

func TestVeoAdapter(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewVeoAdapter(ctx, VeoOptions{})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if _, err := adapter.CheckStatus(ctx, "operations/veo-1"); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}

	fake := &fakeVeo{op: &genai.GenerateVideosOperation{Name: "operations/veo-1"}}
	blobs := &memoryBlobs{}
	adapter.ops = fake
	adapter.store = blobs
	sub, err := adapter.Submit(ctx, Request{Prompt: "misty forest", Duration: 3, AspectRatio: "16:9", Seed: 11})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.ExternalID != "operations/veo-1" || sub.Duration != 5 {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if *fake.cfg.DurationSeconds != 5 || *fake.cfg.Seed != 11 {
		t.Fatalf("unexpected config %+v", fake.cfg)
	}

	report, _ := adapter.CheckStatus(ctx, sub.ExternalID)
	if report.Status != StatusGenerating {
		t.Fatalf("expected generating, got %s", report.Status)
	}

	fake.op = &genai.GenerateVideosOperation{
		Name: "operations/veo-1",
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: "https://generativelanguage.test/v1beta/files/abc:download?alt=media"}}},
		},
	}
	report, _ = adapter.CheckStatus(ctx, sub.ExternalID)
	if report.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", report.Status)
	}
	result, err := adapter.FetchResult(ctx, sub.ExternalID)
	if err != nil || result.VideoURL != "https://media.test/videos/veo/veo-1.mp4" {
		t.Fatalf("unexpected result %+v, %v", result, err)
	}
	if len(fake.downloaded) != 1 || string(blobs.objects["videos/veo/veo-1.mp4"]) != "mp4-bytes" {
		t.Fatalf("video not copied to storage: downloads %v", fake.downloaded)
	}
	if blobs.types["videos/veo/veo-1.mp4"] != "video/mp4" {
		t.Fatalf("content type = %q", blobs.types["videos/veo/veo-1.mp4"])
	}

	fake.op.Response.GeneratedVideos[0].Video = &genai.Video{VideoBytes: []byte("inline"), MIMEType: "video/webm"}
	if _, err := adapter.FetchResult(ctx, sub.ExternalID); err != nil {
		t.Fatalf("inline result: %v", err)
	}
	if len(fake.downloaded) != 1 || string(blobs.objects["videos/veo/veo-1.mp4"]) != "inline" {
		t.Fatal("inline video bytes should be stored without a download")
	}

	adapter.store = nil
	if _, err := adapter.FetchResult(ctx, sub.ExternalID); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected provider failure without storage, got %v", err)
	}
	adapter.store = blobs

	fake.op = &genai.GenerateVideosOperation{Name: "operations/veo-1", Done: true, Error: map[string]any{"message": "blocked"}}
	report, _ = adapter.CheckStatus(ctx, sub.ExternalID)
	if report.Status != StatusFailed || report.Detail != "blocked" {
		t.Fatalf("expected failed with detail, got %+v", report)
	}
}

func TestRegistryNames(t *testing.T) {
	q := newQueue(newCaptureTransport(), "k")
	reg := NewRegistry(NewWanAdapter(q), NewKlingAdapter(q), NewLTXAdapter(q))
	names := reg.Names()
	if strings.Join(names, ",") != "kling,ltx,wan" {
		t.Fatalf("names = %v", names)
	}
	if _, ok := reg.Get("veo"); ok {
		t.Fatal("veo should not be registered")
	}
}
