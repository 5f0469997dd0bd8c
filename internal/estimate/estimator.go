// Package estimate predicts how long a video generation job will take by
// blending the capability table with recently observed render timings.
package estimate

import (
	"math"
	"sort"
	"time"

	"studio/internal/capability"
	"studio/internal/history"
)

const (
	// Window is how far back history is considered.
	Window = 7 * 24 * time.Hour

	// Smoothing is the EWMA weight of each newer observation.
	Smoothing = 0.3

	// AdaptiveWeight is the share of the learned estimate in the blend.
	AdaptiveWeight = 0.7

	// MinimumSeconds floors every estimate.
	MinimumSeconds = 5

	imageMultiplier         = 1.35
	unseenImageMultiplier   = 1.2
	longPromptThreshold     = 300
	longPromptScale         = 3000.0
	longPromptMaxPenalty    = 0.15
	portraitMultiplier      = 1.05
	squareMultiplier        = 1.02
	minAdaptiveObservations = 2
	learnedObservations     = 5
)

// Confidence tells callers how much to trust an estimate.
type Confidence string

const (
	ConfidenceStatic  Confidence = "static"
	ConfidenceLowData Confidence = "low-data"
	ConfidenceLearned Confidence = "learned"
)

// Context describes the job being estimated. History is the full buffer
// snapshot; the estimator applies the provider and window filters itself.
type Context struct {
	HasImage     bool
	PromptLength int
	AspectRatio  string
	History      []history.Record
}

// Estimator is safe for concurrent use; it holds no mutable state.
type Estimator struct {
	now func() time.Time
}

// New returns an Estimator. A nil clock uses time.Now.
func New(now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{now: now}
}

// Duration returns the predicted wall-clock seconds for rendering seconds of
// output on provider.
func (e *Estimator) Duration(provider string, seconds int, ctx Context) int {
	key, rec := capability.Resolve(provider)

	static := StaticBaseline(rec, seconds)
	if ctx.HasImage {
		static *= imageMultiplier
	}
	if ctx.PromptLength > longPromptThreshold {
		static *= 1 + math.Min(float64(ctx.PromptLength-longPromptThreshold)/longPromptScale, longPromptMaxPenalty)
	}
	switch ctx.AspectRatio {
	case capability.AspectPortrait:
		static *= portraitMultiplier
	case capability.AspectSquare:
		static *= squareMultiplier
	}

	baseline := static
	matching := e.recent(key, ctx.History)
	if len(matching) >= minAdaptiveObservations {
		adaptive := EWMA(rates(matching)) * float64(seconds)
		if ctx.HasImage && imageShare(matching) < 0.5 {
			adaptive *= unseenImageMultiplier
		}
		baseline = math.Round(AdaptiveWeight*adaptive + (1-AdaptiveWeight)*static)
	}

	return max(MinimumSeconds, int(math.Round(baseline)))
}

// Confidence classifies how much trailing history backs estimates for
// provider.
func (e *Estimator) Confidence(provider string, records []history.Record) Confidence {
	key, _ := capability.Resolve(provider)
	n := len(e.recent(key, records))
	switch {
	case n >= learnedObservations:
		return ConfidenceLearned
	case n >= 1:
		return ConfidenceLowData
	default:
		return ConfidenceStatic
	}
}

// StaticBaseline is the capability-table prediction with no adjustments.
func StaticBaseline(rec capability.Record, seconds int) float64 {
	return float64(rec.QueueWaitSeconds) + float64(seconds)*rec.SecondsPerOutputSecond
}

// EWMA folds rates (oldest first) with Smoothing, seeded by the oldest rate.
func EWMA(rates []float64) float64 {
	if len(rates) == 0 {
		return 0
	}
	avg := rates[0]
	for _, r := range rates[1:] {
		avg = Smoothing*r + (1-Smoothing)*avg
	}
	return avg
}

func (e *Estimator) recent(provider string, records []history.Record) []history.Record {
	cutoff := e.now().Add(-Window)
	out := make([]history.Record, 0, len(records))
	for _, rec := range records {
		if rec.Provider != provider || rec.CompletedAt.Before(cutoff) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out
}

func rates(records []history.Record) []float64 {
	out := make([]float64, len(records))
	for i, rec := range records {
		out[i] = rec.ActualSeconds / float64(max(rec.Duration, 1))
	}
	return out
}

func imageShare(records []history.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	withImage := 0
	for _, rec := range records {
		if rec.HasImage {
			withImage++
		}
	}
	return float64(withImage) / float64(len(records))
}
