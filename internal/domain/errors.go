package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrProviderFailure    = errors.New("provider failure")
	ErrSubmission         = errors.New("submission rejected")
	ErrTimedOut           = errors.New("timed out")
	ErrRenderInProgress   = errors.New("render already in progress")
)
