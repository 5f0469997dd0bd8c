package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/video"
)

const (
	DefaultPollInterval  = 5 * time.Second
	DefaultPollAttempts  = 60
	DefaultStatusRetries = 2
)

// PollerOptions configures a Poller. Sleep and Now are injectable so loops
// can be driven instantly in tests.
type PollerOptions struct {
	Adapters      *video.Registry
	Interval      time.Duration
	MaxAttempts   int
	StatusRetries int
	Sleep         func(ctx context.Context, d time.Duration) error
	Now           func() time.Time
	Logger        *infra.Logger
}

// Poller checks provider jobs until they reach a terminal state.
type Poller struct {
	adapters      *video.Registry
	interval      time.Duration
	maxAttempts   int
	statusRetries int
	sleep         func(ctx context.Context, d time.Duration) error
	now           func() time.Time
	logger        *infra.Logger
}

func NewPoller(opts PollerOptions) *Poller {
	p := &Poller{
		adapters:      opts.Adapters,
		interval:      opts.Interval,
		maxAttempts:   opts.MaxAttempts,
		statusRetries: opts.StatusRetries,
		sleep:         opts.Sleep,
		now:           opts.Now,
		logger:        opts.Logger,
	}
	if p.adapters == nil {
		p.adapters = video.NewRegistry()
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = DefaultPollAttempts
	}
	if p.statusRetries < 0 {
		p.statusRetries = 0
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		discard := zerolog.Nop()
		p.logger = &discard
	}
	return p
}

// Poll performs one status check and, when the job has completed, the
// follow-up result fetch.
func (p *Poller) Poll(ctx context.Context, provider, externalID string) (video.StatusReport, video.Result, error) {
	adapter, ok := p.adapters.Get(provider)
	if !ok {
		return video.StatusReport{}, video.Result{}, fmt.Errorf("render: no adapter registered for %s: %w", provider, domain.ErrInvalidInput)
	}
	report, err := adapter.CheckStatus(ctx, externalID)
	if err != nil {
		return video.StatusReport{}, video.Result{}, err
	}
	if report.Status != video.StatusCompleted {
		return report, video.Result{}, nil
	}
	result, err := adapter.FetchResult(ctx, externalID)
	if err != nil {
		return report, video.Result{}, err
	}
	return report, result, nil
}

// Await polls job every interval for at most MaxAttempts checks and leaves it
// completed, failed or timed-out. Up to StatusRetries consecutive status-check
// errors are tolerated; each still consumes an attempt.
func (p *Poller) Await(ctx context.Context, job *Job) error {
	log := p.logger.With().
		Str("provider", job.Provider).
		Str("external_id", job.ExternalID).
		Logger()

	consecutiveErrors := 0
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := p.sleep(ctx, p.interval); err != nil {
			p.finish(job, domain.JobStatusFailed, "", err.Error())
			return err
		}
		job.Attempts = attempt

		report, result, err := p.Poll(ctx, job.Provider, job.ExternalID)
		if err != nil {
			consecutiveErrors++
			if errors.Is(err, domain.ErrMissingCredentials) || errors.Is(err, domain.ErrInvalidInput) || consecutiveErrors > p.statusRetries {
				p.finish(job, domain.JobStatusFailed, "", err.Error())
				log.Error().Err(err).Int("attempt", attempt).Msg("render: job failed")
				return err
			}
			log.Warn().Err(err).Int("attempt", attempt).Msg("render: status check failed, retrying")
			continue
		}
		consecutiveErrors = 0

		switch report.Status {
		case video.StatusCompleted:
			p.finish(job, domain.JobStatusCompleted, result.VideoURL, "")
			log.Info().
				Int("attempt", attempt).
				Dur("elapsed", job.Elapsed()).
				Msg("render: job completed")
			return nil
		case video.StatusFailed:
			detail := report.Detail
			if detail == "" {
				detail = "provider reported " + report.Raw
			}
			p.finish(job, domain.JobStatusFailed, "", detail)
			log.Error().Str("detail", detail).Int("attempt", attempt).Msg("render: job failed")
			return fmt.Errorf("%s: %w: %s", job.Provider, domain.ErrProviderFailure, detail)
		default:
			job.Status = domain.JobStatusGenerating
		}
	}

	msg := fmt.Sprintf("no terminal status after %d attempts", p.maxAttempts)
	p.finish(job, domain.JobStatusTimedOut, "", msg)
	log.Warn().Int("attempts", p.maxAttempts).Msg("render: job timed out")
	return fmt.Errorf("%s job %s: %w: %s", job.Provider, job.ExternalID, domain.ErrTimedOut, msg)
}

func (p *Poller) finish(job *Job, status domain.JobStatus, videoURL, detail string) {
	job.Status = status
	job.VideoURL = videoURL
	job.Error = detail
	job.FinishedAt = p.now()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Budget is the longest Await polls a job, not counting request latency.
func (p *Poller) Budget() time.Duration {
	return time.Duration(p.maxAttempts) * p.interval
}
