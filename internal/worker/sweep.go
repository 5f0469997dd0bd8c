// Package worker renders pending scenes in the background on a cron
// schedule.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"studio/internal/capability"
	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/render"
)

// ProjectRenderer renders every renderable scene of a project.
type ProjectRenderer interface {
	RenderProject(ctx context.Context, projectID, selector, aspect string, cancel *render.Cancel, onProgress func(render.Progress)) (render.Progress, error)
}

// staleResetter fails scenes a stopped process left generating.
type staleResetter interface {
	ResetStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Sweeper finds projects with pending or failed scenes and renders them one
// project at a time.
type Sweeper struct {
	projects domain.ProjectRepository
	runner   ProjectRenderer
	tracker  *render.Tracker
	logger   *infra.Logger
	selector string
	aspect   string
	stale    time.Duration

	mu      sync.Mutex
	current *render.Batch
	stopped bool
}

// Options configures a Sweeper.
type Options struct {
	Projects domain.ProjectRepository
	Runner   ProjectRenderer
	Tracker  *render.Tracker
	Logger   *infra.Logger
	// Selector is the provider used for scenes; render.Auto routes by prompt.
	Selector    string
	AspectRatio string
	// StaleAfter, when set, resets scenes generating for longer than this to
	// failed before each sweep so they become renderable again.
	StaleAfter time.Duration
}

func New(opts Options) *Sweeper {
	tracker := opts.Tracker
	if tracker == nil {
		tracker = render.NewTracker(nil)
	}
	selector := opts.Selector
	if selector == "" {
		selector = render.Auto
	}
	aspect := opts.AspectRatio
	if aspect == "" {
		aspect = capability.DefaultAspect
	}
	return &Sweeper{
		projects: opts.Projects,
		runner:   opts.Runner,
		tracker:  tracker,
		logger:   infra.OrDiscard(opts.Logger),
		selector: selector,
		aspect:   aspect,
		stale:    opts.StaleAfter,
	}
}

// Sweep renders every renderable project once and returns how many were
// processed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if resetter, ok := s.runner.(staleResetter); ok && s.stale > 0 {
		if _, err := resetter.ResetStale(ctx, s.stale); err != nil {
			s.logger.Error().Err(err).Msg("worker: reset stale scenes")
		}
	}
	ids, err := s.projects.ListRenderable(ctx)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, id := range ids {
		if ctx.Err() != nil || s.isStopped() {
			break
		}
		batch, err := s.tracker.Start(id)
		if err != nil {
			if errors.Is(err, domain.ErrRenderInProgress) {
				continue
			}
			return processed, err
		}
		s.setCurrent(batch)
		final, err := s.runner.RenderProject(ctx, id, s.selector, s.aspect, batch.Cancel, batch.Update)
		s.tracker.Finish(batch, final)
		s.setCurrent(nil)
		log := s.logger.With().Str("project_id", id).Logger()
		if err != nil {
			log.Error().Err(err).Msg("worker: render project failed")
			continue
		}
		processed++
		log.Info().
			Int("done", final.Done).
			Int("failed", final.Failed).
			Int("skipped", final.Skipped).
			Bool("cancelled", final.Cancelled).
			Dur("elapsed", final.Elapsed).
			Msg("worker: project rendered")
	}
	return processed, nil
}

// Stop asks the sweep in progress to finish its current scene and skip the
// remaining projects.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.current != nil {
		s.current.Cancel.Request()
	}
}

// Schedule registers the sweep on c. Overlapping runs are skipped.
func (s *Sweeper) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		n, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("worker: sweep failed")
			return
		}
		if n > 0 {
			s.logger.Info().Int("projects", n).Msg("worker: sweep finished")
		}
	}))
	return c.AddJob(spec, job)
}

func (s *Sweeper) setCurrent(b *render.Batch) {
	s.mu.Lock()
	s.current = b
	s.mu.Unlock()
}

func (s *Sweeper) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
