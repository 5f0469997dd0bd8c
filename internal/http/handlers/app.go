// Package handlers implements the studio HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/estimate"
	"studio/internal/history"
	"studio/internal/infra"
	"studio/internal/providers/prompt"
	"studio/internal/providers/tts"
	"studio/internal/providers/video"
	"studio/internal/render"
	"studio/internal/storage"
)

// Synthesizer turns narration text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*tts.Audio, error)
}

// App holds the dependencies shared by every handler.
type App struct {
	Logger    *infra.Logger
	Projects  domain.ProjectRepository
	Scenes    domain.SceneRepository
	Jobs      domain.VideoJobRepository
	Adapters  *video.Registry
	Router    *render.Router
	Runner    *render.Runner
	Tracker   *render.Tracker
	Estimator *estimate.Estimator
	History   *history.Buffer
	Writer    prompt.ScreenplayWriter
	Speech    Synthesizer
	Keyframes KeyframeGenerator
	Blobs     storage.BlobStore
	Now       func() time.Time

	// BatchContext bounds background renders; it is cancelled on shutdown.
	BatchContext context.Context

	batches sync.WaitGroup
}

// Wait blocks until every background render started by the API returns.
func (a *App) Wait() {
	a.batches.Wait()
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return infra.OrDiscard(a.Logger)
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	var body errorBody
	body.Error.Code = errCode
	body.Error.Message = message
	a.json(w, code, body)
}

// fail maps domain errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", message)
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrRenderInProgress):
		a.error(w, http.StatusConflict, "render_in_progress", message)
	case errors.Is(err, domain.ErrMissingCredentials):
		a.error(w, http.StatusServiceUnavailable, "missing_credentials", err.Error())
	case errors.Is(err, domain.ErrSubmission), errors.Is(err, domain.ErrProviderFailure):
		a.logger(r).Warn().Err(err).Msg(message)
		a.error(w, http.StatusBadGateway, "provider_error", message)
	default:
		a.logger(r).Error().Err(err).Msg(message)
		a.error(w, http.StatusInternalServerError, "internal", message)
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
