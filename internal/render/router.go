// Package render routes generation requests to video providers, drives them
// to a terminal state and runs sequential scene batches.
package render

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/capability"
	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/video"
)

// Auto asks the router to choose a provider from the prompt.
const Auto = "auto"

// Params is a generation request before provider normalization.
type Params struct {
	Prompt         string
	NegativePrompt string
	ImageURL       string
	Duration       int
	AspectRatio    string
	Seed           int
	CameraMovement string
	Style          string
}

// Rule is one row of the auto-select decision table.
type Rule struct {
	Name     string
	Provider string
	Match    func(prompt string, seconds int, hasImage bool) bool
}

var (
	motionWords   = regexp.MustCompile(`(?i)\b(explosions?|explod\w*|chase\w*|fight\w*|battle\w*|run(s|ning)?|jump\w*|crash\w*|action|race|racing|danc\w*|punch\w*|kick\w*|fl(y|ying|ies)|spin\w*|sprint\w*)\b`)
	natureWords   = regexp.MustCompile(`(?i)\b(nature|landscape|forest|ocean|mountains?|sunset|sunrise|river|wildlife|waterfall|photoreal\w*|realistic|documentary|aerial)\b`)
	portraitWords = regexp.MustCompile(`(?i)\b(portrait|faces?|facial|close-?up|person|woman|man|character|talking|expression|smil\w*)\b`)
)

// Rules is evaluated top to bottom; the first match wins and Default applies
// when nothing matches.
var Rules = []Rule{
	{
		Name:     "motion",
		Provider: capability.Kling,
		Match: func(prompt string, _ int, _ bool) bool {
			return motionWords.MatchString(prompt)
		},
	},
	{
		Name:     "short",
		Provider: capability.LTX,
		Match: func(_ string, seconds int, _ bool) bool {
			return seconds > 0 && seconds <= 3
		},
	},
	{
		Name:     "photoreal",
		Provider: capability.Veo,
		Match: func(prompt string, _ int, _ bool) bool {
			return natureWords.MatchString(prompt)
		},
	},
	{
		Name:     "portrait",
		Provider: capability.Hailuo,
		Match: func(prompt string, _ int, hasImage bool) bool {
			return hasImage && portraitWords.MatchString(prompt)
		},
	},
}

// SelectProvider runs the auto-select table.
func SelectProvider(prompt string, seconds int, hasImage bool) string {
	if rule, ok := matchRule(prompt, seconds, hasImage); ok {
		return rule.Provider
	}
	return capability.Default
}

// MatchingRule names the rule SelectProvider would apply, or "default".
func MatchingRule(prompt string, seconds int, hasImage bool) string {
	if rule, ok := matchRule(prompt, seconds, hasImage); ok {
		return rule.Name
	}
	return "default"
}

func matchRule(prompt string, seconds int, hasImage bool) (Rule, bool) {
	for _, rule := range Rules {
		if rule.Match(prompt, seconds, hasImage) {
			return rule, true
		}
	}
	return Rule{}, false
}

// ResolveProvider turns a selector into a concrete provider key.
func ResolveProvider(selector string, p Params) string {
	selector = strings.ToLower(strings.TrimSpace(selector))
	if selector == "" || selector == Auto {
		return SelectProvider(p.Prompt, p.Duration, strings.TrimSpace(p.ImageURL) != "")
	}
	key, _ := capability.Resolve(selector)
	return key
}

// Normalize fits p to what rec can render: the duration is clamped, the
// aspect ratio falls back to the default, and unsupported options are
// dropped.
func Normalize(p Params, rec capability.Record) video.Request {
	req := video.Request{
		Prompt:   strings.TrimSpace(p.Prompt),
		Duration: rec.ClampDuration(p.Duration),
	}
	req.AspectRatio = p.AspectRatio
	if !rec.SupportsAspect(req.AspectRatio) {
		req.AspectRatio = capability.DefaultAspect
	}
	if rec.SupportsNegativePrompt {
		req.NegativePrompt = strings.TrimSpace(p.NegativePrompt)
	}
	if rec.SupportsImage {
		req.ImageURL = strings.TrimSpace(p.ImageURL)
	}
	if rec.SupportsSeed && p.Seed > 0 {
		req.Seed = p.Seed
	}
	if rec.SupportsCameraMovement {
		req.CameraMovement = strings.TrimSpace(p.CameraMovement)
	}
	if rec.SupportsStylePreset {
		req.Style = strings.TrimSpace(p.Style)
	}
	return req
}

// Job is one submission and its lifecycle. A terminal job is never
// resubmitted; retrying creates a new Job.
type Job struct {
	ID          string
	Provider    string
	ExternalID  string
	Request     video.Request
	Status      domain.JobStatus
	VideoURL    string
	Error       string
	Cost        float64
	SubmittedAt time.Time
	FinishedAt  time.Time
	Attempts    int
}

// Elapsed is the wall-clock time from submission to the terminal state.
func (j *Job) Elapsed() time.Duration {
	if j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.SubmittedAt)
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Adapters *video.Registry
	Logger   *infra.Logger
	Now      func() time.Time
}

// Router submits normalized requests to provider adapters.
type Router struct {
	adapters *video.Registry
	logger   *infra.Logger
	now      func() time.Time
}

func NewRouter(opts RouterOptions) *Router {
	r := &Router{adapters: opts.Adapters, logger: opts.Logger, now: opts.Now}
	if r.adapters == nil {
		r.adapters = video.NewRegistry()
	}
	if r.logger == nil {
		discard := zerolog.Nop()
		r.logger = &discard
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Plan resolves the provider and normalized request without submitting.
func (r *Router) Plan(p Params, selector string) (string, video.Request) {
	key := ResolveProvider(selector, p)
	return key, Normalize(p, capability.Lookup(key))
}

// Submit sends p to the provider chosen by selector. Submission failures are
// returned as-is; they are never retried here. The job's request carries the
// duration the provider reports it will render, and cost follows it.
func (r *Router) Submit(ctx context.Context, p Params, selector string) (*Job, error) {
	key, req := r.Plan(p, selector)
	adapter, ok := r.adapters.Get(key)
	if !ok {
		return nil, fmt.Errorf("render: no adapter registered for %s: %w", key, domain.ErrInvalidInput)
	}
	submitted := r.now()
	sub, err := adapter.Submit(ctx, req)
	if err != nil {
		r.logger.Warn().Err(err).Str("provider", key).Msg("render: submit failed")
		return nil, err
	}
	requested := req.Duration
	if sub.Duration > 0 {
		req.Duration = sub.Duration
	}
	r.logger.Info().
		Str("provider", key).
		Str("external_id", sub.ExternalID).
		Int("requested", requested).
		Int("duration", req.Duration).
		Msg("render: job submitted")
	return &Job{
		Provider:    key,
		ExternalID:  sub.ExternalID,
		Request:     req,
		Status:      domain.JobStatusGenerating,
		Cost:        capability.EstimateCost(key, req.Duration),
		SubmittedAt: submitted,
	}, nil
}
