package video

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"studio/internal/infra"
)

// SeedanceOptions configures the Seedance adapter.
type SeedanceOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *infra.Logger
}

type seedanceTask struct {
	Status   string
	VideoURL string
	Error    string
}

type seedanceTasks interface {
	create(ctx context.Context, req model.CreateContentGenerationTaskRequest) (string, error)
	get(ctx context.Context, id string) (seedanceTask, error)
}

type arkTasks struct {
	client *arkruntime.Client
}

func (a arkTasks) create(ctx context.Context, req model.CreateContentGenerationTaskRequest) (string, error) {
	resp, err := a.client.CreateContentGenerationTask(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (a arkTasks) get(ctx context.Context, id string) (seedanceTask, error) {
	req := model.GetContentGenerationTaskRequest{}
	req.ID = id
	resp, err := a.client.GetContentGenerationTask(ctx, req)
	if err != nil {
		return seedanceTask{}, err
	}
	task := seedanceTask{Status: resp.Status, VideoURL: resp.Content.VideoURL}
	if resp.Error != nil {
		task.Error = strings.TrimSpace(resp.Error.Message)
		if task.Error == "" {
			task.Error = resp.Error.Code
		}
	}
	return task, nil
}

// SeedanceAdapter drives ByteDance Seedance through the Ark content
// generation task API. Generation parameters travel as prompt flags.
type SeedanceAdapter struct {
	tasks  seedanceTasks
	model  string
	logger *infra.Logger
}

func NewSeedanceAdapter(opts SeedanceOptions) *SeedanceAdapter {
	adapter := &SeedanceAdapter{
		model:  strings.TrimSpace(opts.Model),
		logger: discardLogger(opts.Logger),
	}
	if adapter.model == "" {
		adapter.model = "doubao-seedance-1-0-pro-250528"
	}
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return adapter
	}
	var client *arkruntime.Client
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		client = arkruntime.NewClientWithApiKey(key, arkruntime.WithBaseUrl(base))
	} else {
		client = arkruntime.NewClientWithApiKey(key)
	}
	adapter.tasks = arkTasks{client: client}
	return adapter
}

func (a *SeedanceAdapter) Name() string { return "seedance" }

func (a *SeedanceAdapter) Submit(ctx context.Context, req Request) (Submission, error) {
	if a.tasks == nil {
		return Submission{}, missingKey(a.Name())
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Submission{}, errors.New("seedance: prompt is required")
	}
	content := []*model.CreateContentGenerationContentItem{
		{
			Type: model.ContentGenerationContentItemTypeText,
			Text: volcengine.String(SeedancePrompt(req)),
		},
	}
	if req.HasImage() {
		content = append(content, &model.CreateContentGenerationContentItem{
			Type:     model.ContentGenerationContentItemTypeImage,
			ImageURL: &model.ImageURL{URL: strings.TrimSpace(req.ImageURL)},
		})
	}
	id, err := a.tasks.create(ctx, model.CreateContentGenerationTaskRequest{
		Model:   a.model,
		Content: content,
	})
	if err != nil {
		return Submission{}, &ProviderError{Provider: a.Name(), Op: OpSubmit, Body: err.Error()}
	}
	if id == "" {
		return Submission{}, &ProviderError{Provider: a.Name(), Op: OpSubmit, Body: "empty task id"}
	}
	a.logger.Debug().Str("model", a.model).Str("task_id", id).Msg("seedance: created task")
	return Submission{Provider: a.Name(), ExternalID: id, Duration: seedanceSeconds(req.Duration)}, nil
}

func (a *SeedanceAdapter) CheckStatus(ctx context.Context, externalID string) (StatusReport, error) {
	if a.tasks == nil {
		return StatusReport{}, missingKey(a.Name())
	}
	task, err := a.tasks.get(ctx, externalID)
	if err != nil {
		return StatusReport{}, &ProviderError{Provider: a.Name(), Op: OpStatus, Body: err.Error()}
	}
	report := StatusReport{Status: seedanceStatus(task.Status), Raw: task.Status}
	if report.Status == StatusFailed {
		report.Detail = task.Error
	}
	return report, nil
}

func (a *SeedanceAdapter) FetchResult(ctx context.Context, externalID string) (Result, error) {
	if a.tasks == nil {
		return Result{}, missingKey(a.Name())
	}
	task, err := a.tasks.get(ctx, externalID)
	if err != nil {
		return Result{}, &ProviderError{Provider: a.Name(), Op: OpResult, Body: err.Error()}
	}
	if task.VideoURL == "" {
		return Result{}, &ProviderError{Provider: a.Name(), Op: OpResult, Body: "no video for status " + task.Status}
	}
	return Result{VideoURL: task.VideoURL}, nil
}

// SeedancePrompt appends the generation flags Seedance reads from the text.
func SeedancePrompt(req Request) string {
	prompt := strings.TrimSpace(req.Prompt)
	movement := strings.ToLower(strings.TrimSpace(req.CameraMovement))
	if movement != "" && movement != "static" {
		prompt += ", camera " + movement
	}
	flags := []string{
		"--resolution 720p",
		fmt.Sprintf("--duration %d", seedanceSeconds(req.Duration)),
	}
	if req.AspectRatio != "" && !req.HasImage() {
		flags = append(flags, "--ratio "+req.AspectRatio)
	}
	if movement != "" {
		flags = append(flags, fmt.Sprintf("--camerafixed %t", movement == "static"))
	}
	if req.Seed > 0 {
		flags = append(flags, fmt.Sprintf("--seed %d", req.Seed))
	}
	return prompt + " " + strings.Join(flags, " ")
}

func seedanceSeconds(seconds int) int {
	if seconds > 5 {
		return 10
	}
	return 5
}

func seedanceStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued":
		return StatusPending
	case "running":
		return StatusGenerating
	case "succeeded":
		return StatusCompleted
	case "failed", "cancelled", "expired":
		return StatusFailed
	default:
		return StatusPending
	}
}

var _ Adapter = (*SeedanceAdapter)(nil)
