package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"google.golang.org/genai"

	"studio/internal/infra"
	"studio/internal/storage"
)

// VeoOptions configures the Veo adapter. Generated videos are only
// downloadable with the API key, so finished clips are copied to Store.
type VeoOptions struct {
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Store      storage.BlobStore
	Logger     *infra.Logger
}

// veoOperations is the slice of the genai client the adapter needs.
type veoOperations interface {
	generate(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	operation(ctx context.Context, name string) (*genai.GenerateVideosOperation, error)
	download(ctx context.Context, video *genai.Video) ([]byte, error)
}

type genaiVeo struct {
	client *genai.Client
}

func (g genaiVeo) generate(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return g.client.Models.GenerateVideos(ctx, model, prompt, image, cfg)
}

func (g genaiVeo) operation(ctx context.Context, name string) (*genai.GenerateVideosOperation, error) {
	return g.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: name}, nil)
}

func (g genaiVeo) download(ctx context.Context, video *genai.Video) ([]byte, error) {
	return g.client.Files.Download(ctx, genai.NewDownloadURIFromVideo(video), nil)
}

// VeoAdapter drives Google Veo through the Gemini API long-running
// operations. The operation name is the external id.
type VeoAdapter struct {
	ops        veoOperations
	model      string
	httpClient *http.Client
	store      storage.BlobStore
	logger     *infra.Logger
}

// NewVeoAdapter builds the adapter. Without an API key it still registers but
// every call reports missing credentials.
func NewVeoAdapter(ctx context.Context, opts VeoOptions) (*VeoAdapter, error) {
	adapter := &VeoAdapter{
		model:      strings.TrimSpace(opts.Model),
		httpClient: opts.HTTPClient,
		store:      opts.Store,
		logger:     discardLogger(opts.Logger),
	}
	if adapter.model == "" {
		adapter.model = "veo-2.0-generate-001"
	}
	if adapter.httpClient == nil {
		adapter.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return adapter, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("veo: new client: %w", err)
	}
	adapter.ops = genaiVeo{client: client}
	return adapter, nil
}

func (a *VeoAdapter) Name() string { return "veo" }

func (a *VeoAdapter) Submit(ctx context.Context, req Request) (Submission, error) {
	if a.ops == nil {
		return Submission{}, missingKey(a.Name())
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Submission{}, errors.New("veo: prompt is required")
	}
	duration := int32(veoSeconds(req.Duration))
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos:  1,
		AspectRatio:     req.AspectRatio,
		DurationSeconds: &duration,
		NegativePrompt:  strings.TrimSpace(req.NegativePrompt),
	}
	if req.Seed > 0 {
		seed := int32(req.Seed)
		cfg.Seed = &seed
	}
	var image *genai.Image
	if req.HasImage() {
		img, err := a.downloadImage(ctx, req.ImageURL)
		if err != nil {
			return Submission{}, err
		}
		image = img
	}
	op, err := a.ops.generate(ctx, a.model, prompt, image, cfg)
	if err != nil {
		return Submission{}, &ProviderError{Provider: a.Name(), Op: OpSubmit, Body: err.Error()}
	}
	if op == nil || op.Name == "" {
		return Submission{}, &ProviderError{Provider: a.Name(), Op: OpSubmit, Body: "empty operation name"}
	}
	a.logger.Debug().Str("model", a.model).Str("operation", op.Name).Msg("veo: started generation")
	return Submission{Provider: a.Name(), ExternalID: op.Name, Duration: int(duration)}, nil
}

func (a *VeoAdapter) CheckStatus(ctx context.Context, externalID string) (StatusReport, error) {
	op, err := a.fetch(ctx, externalID)
	if err != nil {
		return StatusReport{}, err
	}
	switch {
	case len(op.Error) > 0:
		return StatusReport{Status: StatusFailed, Raw: "error", Detail: operationMessage(op.Error)}, nil
	case !op.Done:
		return StatusReport{Status: StatusGenerating, Raw: "running"}, nil
	case veoVideo(op) == nil:
		return StatusReport{Status: StatusFailed, Raw: "done", Detail: "no video returned"}, nil
	default:
		return StatusReport{Status: StatusCompleted, Raw: "done"}, nil
	}
}

func (a *VeoAdapter) FetchResult(ctx context.Context, externalID string) (Result, error) {
	op, err := a.fetch(ctx, externalID)
	if err != nil {
		return Result{}, err
	}
	clip := veoVideo(op)
	if clip == nil {
		return Result{}, &ProviderError{Provider: a.Name(), Op: OpResult, Body: "empty video uri"}
	}
	if a.store == nil {
		return Result{}, &ProviderError{Provider: a.Name(), Op: OpResult, Body: "no blob store to copy the video to"}
	}
	data := clip.VideoBytes
	if len(data) == 0 {
		data, err = a.ops.download(ctx, clip)
		if err != nil {
			return Result{}, &ProviderError{Provider: a.Name(), Op: OpResult, Body: "download video: " + err.Error()}
		}
	}
	contentType := clip.MIMEType
	if contentType == "" {
		contentType = "video/mp4"
	}
	url, err := a.store.Put(ctx, veoVideoKey(externalID), data, contentType)
	if err != nil {
		return Result{}, fmt.Errorf("veo: store video: %w", err)
	}
	a.logger.Debug().Str("operation", externalID).Int("bytes", len(data)).Str("url", url).Msg("veo: stored video")
	return Result{VideoURL: url}, nil
}

func (a *VeoAdapter) fetch(ctx context.Context, name string) (*genai.GenerateVideosOperation, error) {
	if a.ops == nil {
		return nil, missingKey(a.Name())
	}
	op, err := a.ops.operation(ctx, name)
	if err != nil {
		return nil, &ProviderError{Provider: a.Name(), Op: OpStatus, Body: err.Error()}
	}
	if op == nil {
		return nil, &ProviderError{Provider: a.Name(), Op: OpStatus, Body: "empty operation"}
	}
	return op, nil
}

func (a *VeoAdapter) downloadImage(ctx context.Context, imageURL string) (*genai.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(imageURL), nil)
	if err != nil {
		return nil, fmt.Errorf("veo: build image request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("veo: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("veo: download image status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("veo: read image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return &genai.Image{ImageBytes: data, MIMEType: mime}, nil
}

// veoSeconds is the clip length Veo renders; it has a five second floor.
func veoSeconds(seconds int) int {
	return max(seconds, 5)
}

func veoVideo(op *genai.GenerateVideosOperation) *genai.Video {
	if op.Response == nil {
		return nil
	}
	for _, v := range op.Response.GeneratedVideos {
		if v != nil && v.Video != nil && (v.Video.URI != "" || len(v.Video.VideoBytes) > 0) {
			return v.Video
		}
	}
	return nil
}

// veoVideoKey names the stored copy after the last segment of the
// operation name.
func veoVideoKey(operation string) string {
	return "videos/veo/" + path.Base(operation) + ".mp4"
}

func operationMessage(detail map[string]any) string {
	if msg, ok := detail["message"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprint(detail)
}

var _ Adapter = (*VeoAdapter)(nil)
