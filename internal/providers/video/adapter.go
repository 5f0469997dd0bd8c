// Package video adapts asynchronous text/image-to-video APIs to a common
// submit, check, fetch contract.
package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Status is the provider-neutral job vocabulary.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether polling can stop.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request is a normalized generation request. Duration and AspectRatio have
// already been fitted to the provider's capabilities. A zero Seed is unset.
type Request struct {
	Prompt         string
	NegativePrompt string
	ImageURL       string
	Duration       int
	AspectRatio    string
	Seed           int
	CameraMovement string
	Style          string
}

// HasImage reports whether the request is image-conditioned.
func (r Request) HasImage() bool {
	return strings.TrimSpace(r.ImageURL) != ""
}

// Submission identifies an accepted job at the provider. Duration is the
// clip length the provider will render and bill, which can exceed the
// requested length when the provider only offers fixed durations.
type Submission struct {
	Provider   string
	ExternalID string
	Duration   int
}

// StatusReport is a single status observation.
type StatusReport struct {
	Status Status
	Raw    string
	Detail string
}

// Result is the output of a completed job.
type Result struct {
	VideoURL string
}

// Adapter is implemented once per provider.
type Adapter interface {
	Name() string
	Submit(ctx context.Context, req Request) (Submission, error)
	CheckStatus(ctx context.Context, externalID string) (StatusReport, error)
	FetchResult(ctx context.Context, externalID string) (Result, error)
}

// Operations reported in ProviderError.
const (
	OpSubmit = "submit"
	OpStatus = "status"
	OpResult = "result"
)

// ProviderError is a non-success answer from a provider API.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Op, e.Body)
	}
	return fmt.Sprintf("%s: %s status %d: %s", e.Provider, e.Op, e.StatusCode, e.Body)
}

// Unwrap classifies rejected submissions apart from other provider failures.
func (e *ProviderError) Unwrap() error {
	if e.Op == OpSubmit {
		return domain.ErrSubmission
	}
	return domain.ErrProviderFailure
}

func missingKey(provider string) error {
	return fmt.Errorf("%s: %w", provider, domain.ErrMissingCredentials)
}

func discardLogger(l *infra.Logger) *infra.Logger {
	if l != nil {
		return l
	}
	discard := zerolog.New(io.Discard)
	return &discard
}

func readBody(resp *http.Response) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
