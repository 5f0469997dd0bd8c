package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/estimate"
	"studio/internal/history"
	"studio/internal/infra"
)

// Cancel is a cooperative stop flag. A batch checks it between scenes and
// never interrupts the scene in flight.
type Cancel struct {
	requested atomic.Bool
}

func (c *Cancel) Request() { c.requested.Store(true) }

func (c *Cancel) Requested() bool {
	return c != nil && c.requested.Load()
}

// PersistTimeout bounds each write that records a render outcome. Those
// writes are detached from the batch context so a cancelled batch still
// leaves its scene completed or failed.
const PersistTimeout = 10 * time.Second

// Progress is the batch snapshot recomputed after every scene. Skipped counts
// scenes another renderer claimed first.
type Progress struct {
	Total              int           `json:"total"`
	Done               int           `json:"done"`
	Failed             int           `json:"failed"`
	Skipped            int           `json:"skipped"`
	Remaining          int           `json:"remaining"`
	Elapsed            time.Duration `json:"elapsed"`
	ProjectedRemaining time.Duration `json:"projected_remaining"`
	Current            string        `json:"current,omitempty"`
	Cancelled          bool          `json:"cancelled"`
	Finished           bool          `json:"finished"`
}

// RunnerOptions wires a Runner.
type RunnerOptions struct {
	Router  *Router
	Poller  *Poller
	Scenes  domain.SceneRepository
	Jobs    domain.VideoJobRepository
	History *history.Buffer
	Logger  *infra.Logger
	Now     func() time.Time
}

// Runner renders scenes one at a time and writes the outcome back to the
// scene, the video job log and the timing history.
type Runner struct {
	router  *Router
	poller  *Poller
	scenes  domain.SceneRepository
	jobs    domain.VideoJobRepository
	history *history.Buffer
	logger  *infra.Logger
	now     func() time.Time
}

func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		router:  opts.Router,
		poller:  opts.Poller,
		scenes:  opts.Scenes,
		jobs:    opts.Jobs,
		history: opts.History,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if r.logger == nil {
		discard := zerolog.Nop()
		r.logger = &discard
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.history == nil {
		r.history = history.NewBuffer(nil)
	}
	return r
}

// SceneParams builds the generation request for a scene. The shot framing
// and lighting are appended to the prompt when set.
func SceneParams(scene domain.Scene, aspect string) Params {
	prompt := strings.TrimSpace(scene.Prompt)
	if prompt == "" {
		prompt = strings.TrimSpace(scene.Description)
	}
	parts := []string{prompt}
	if angle := strings.TrimSpace(scene.CameraAngle); angle != "" && !strings.Contains(strings.ToLower(prompt), strings.ToLower(angle)) {
		parts = append(parts, angle)
	}
	if light := strings.TrimSpace(scene.Lighting); light != "" && !strings.Contains(strings.ToLower(prompt), strings.ToLower(light)) {
		parts = append(parts, light+" lighting")
	}
	return Params{
		Prompt:      strings.Join(parts, ", "),
		ImageURL:    scene.ImageURL,
		Duration:    scene.Duration,
		AspectRatio: aspect,
	}
}

// RenderScene claims one scene, submits it, waits for it and persists the
// outcome. A claimed scene always ends completed or failed. When another
// renderer holds the scene the error wraps domain.ErrRenderInProgress and
// nothing is submitted.
func (r *Runner) RenderScene(ctx context.Context, scene *domain.Scene, selector string, aspect string) (*Job, error) {
	if selector == "" {
		selector = scene.Provider
	}
	params := SceneParams(*scene, aspect)
	if params.Prompt == "" {
		err := fmt.Errorf("scene %s has no prompt: %w", scene.ID, domain.ErrInvalidInput)
		r.markScene(ctx, scene, domain.SceneUpdate{Status: domain.SceneStatusFailed, Error: err.Error()})
		return nil, err
	}

	claimed, err := r.claim(ctx, scene)
	if err != nil {
		return nil, fmt.Errorf("claim scene %s: %w", scene.ID, err)
	}
	if !claimed {
		return nil, fmt.Errorf("scene %s: %w", scene.ID, domain.ErrRenderInProgress)
	}

	job, err := r.router.Submit(ctx, params, selector)
	if err != nil {
		r.markScene(ctx, scene, domain.SceneUpdate{Status: domain.SceneStatusFailed, Error: err.Error()})
		return nil, err
	}
	job.ID = uuid.NewString()
	r.startJob(ctx, scene, job)

	awaitErr := r.poller.Await(ctx, job)
	r.finishJob(ctx, job)

	if job.Status == domain.JobStatusCompleted {
		r.recordTiming(ctx, job)
		r.markScene(ctx, scene, domain.SceneUpdate{
			Status:   domain.SceneStatusCompleted,
			VideoURL: job.VideoURL,
			Provider: job.Provider,
		})
		return job, nil
	}

	r.markScene(ctx, scene, domain.SceneUpdate{
		Status:   domain.SceneStatusFailed,
		Error:    job.Error,
		Provider: job.Provider,
	})
	if awaitErr == nil {
		awaitErr = errors.New(job.Error)
	}
	return job, awaitErr
}

// RenderAll renders every pending or failed scene in order. onProgress, when
// set, receives a snapshot after each scene.
func (r *Runner) RenderAll(ctx context.Context, scenes []domain.Scene, selector, aspect string, cancel *Cancel, onProgress func(Progress)) Progress {
	queue := make([]int, 0, len(scenes))
	for i := range scenes {
		if scenes[i].Status.Renderable() {
			queue = append(queue, i)
		}
	}

	started := r.now()
	progress := Progress{Total: len(queue), Remaining: len(queue)}
	var durations []time.Duration

	for n, idx := range queue {
		if cancel.Requested() {
			progress.Cancelled = true
			r.logger.Info().Int("remaining", progress.Remaining).Msg("render: batch cancelled")
			break
		}
		if ctx.Err() != nil {
			progress.Cancelled = true
			break
		}

		scene := &scenes[idx]
		progress.Current = scene.ID
		sceneStart := r.now()
		_, err := r.RenderScene(ctx, scene, selector, aspect)
		switch {
		case errors.Is(err, domain.ErrRenderInProgress):
			progress.Skipped++
			r.logger.Info().Str("scene_id", scene.ID).Msg("render: scene claimed elsewhere, skipping")
		case err != nil:
			progress.Failed++
			r.logger.Warn().Err(err).Str("scene_id", scene.ID).Msg("render: scene failed")
		default:
			progress.Done++
			durations = append(durations, r.now().Sub(sceneStart))
		}

		progress.Remaining = len(queue) - (n + 1)
		progress.Elapsed = r.now().Sub(started)
		progress.ProjectedRemaining = estimate.ProjectRemaining(durations, progress.Remaining)
		if onProgress != nil {
			onProgress(progress)
		}
	}

	progress.Current = ""
	progress.Finished = true
	progress.Elapsed = r.now().Sub(started)
	if onProgress != nil {
		onProgress(progress)
	}
	return progress
}

// RenderProject loads the scenes of projectID and renders them as a batch.
func (r *Runner) RenderProject(ctx context.Context, projectID, selector, aspect string, cancel *Cancel, onProgress func(Progress)) (Progress, error) {
	scenes, err := r.scenes.ListByProject(ctx, projectID)
	if err != nil {
		return Progress{}, fmt.Errorf("list scenes: %w", err)
	}
	return r.RenderAll(ctx, scenes, selector, aspect, cancel, onProgress), nil
}

// ResetStale fails scenes stuck generating for longer than olderThan. Only
// repositories that support it are swept.
func (r *Runner) ResetStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	resetter, ok := r.scenes.(StaleResetter)
	if !ok {
		return 0, nil
	}
	n, err := resetter.ResetStale(ctx, r.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("reset stale scenes: %w", err)
	}
	if n > 0 {
		r.logger.Warn().Int64("scenes", n).Dur("older_than", olderThan).Msg("render: reset interrupted scenes to failed")
	}
	return n, nil
}

// StaleResetter is implemented by scene stores that can fail abandoned
// renders.
type StaleResetter interface {
	ResetStale(ctx context.Context, cutoff time.Time) (int64, error)
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), PersistTimeout)
}

func (r *Runner) claim(ctx context.Context, scene *domain.Scene) (bool, error) {
	if r.scenes != nil {
		ok, err := r.scenes.Claim(ctx, scene.ID)
		if err != nil || !ok {
			return false, err
		}
	}
	scene.Status = domain.SceneStatusGenerating
	scene.Error = ""
	return true, nil
}

func (r *Runner) markScene(ctx context.Context, scene *domain.Scene, update domain.SceneUpdate) {
	scene.Status = update.Status
	scene.Error = update.Error
	if update.VideoURL != "" {
		scene.VideoURL = update.VideoURL
	}
	if update.Provider != "" {
		scene.Provider = update.Provider
	}
	if r.scenes == nil {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := r.scenes.UpdateStatus(ctx, scene.ID, update); err != nil {
		r.logger.Error().Err(err).Str("scene_id", scene.ID).Str("status", string(update.Status)).Msg("render: persist scene status")
	}
}

func (r *Runner) startJob(ctx context.Context, scene *domain.Scene, job *Job) {
	if r.jobs == nil {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	err := r.jobs.Start(ctx, &domain.VideoJob{
		ID:         job.ID,
		SceneID:    scene.ID,
		Provider:   job.Provider,
		ExternalID: job.ExternalID,
		Status:     domain.JobStatusGenerating,
		Cost:       job.Cost,
		StartedAt:  job.SubmittedAt.UTC(),
	})
	if err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("render: log video job")
	}
}

func (r *Runner) finishJob(ctx context.Context, job *Job) {
	if r.jobs == nil {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := r.jobs.Finish(ctx, job.ID, job.Status, job.VideoURL); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("render: finish video job")
	}
}

func (r *Runner) recordTiming(ctx context.Context, job *Job) {
	rec := history.Record{
		Provider:      job.Provider,
		Duration:      job.Request.Duration,
		ActualSeconds: job.Elapsed().Seconds(),
		HasImage:      job.Request.HasImage(),
		PromptLength:  len([]rune(job.Request.Prompt)),
		AspectRatio:   job.Request.AspectRatio,
		CompletedAt:   job.FinishedAt.UTC(),
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := r.history.Append(ctx, rec); err != nil {
		r.logger.Warn().Err(err).Str("provider", job.Provider).Msg("render: persist timing record")
	}
}
