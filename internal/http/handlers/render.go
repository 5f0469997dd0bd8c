package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/capability"
	"studio/internal/domain"
	"studio/internal/render"
)

type renderRequest struct {
	Provider    string `json:"provider"`
	AspectRatio string `json:"aspect_ratio"`
}

type batchResponse struct {
	ProjectID          string  `json:"project_id"`
	Total              int     `json:"total"`
	Done               int     `json:"done"`
	Failed             int     `json:"failed"`
	Skipped            int     `json:"skipped"`
	Remaining          int     `json:"remaining"`
	ElapsedSeconds     float64 `json:"elapsed_seconds"`
	ProjectedRemaining float64 `json:"projected_remaining_seconds"`
	Current            string  `json:"current,omitempty"`
	Cancelled          bool    `json:"cancelled"`
	Finished           bool    `json:"finished"`
	TotalCost          float64 `json:"total_cost"`
}

func toBatchResponse(projectID string, p render.Progress, cost float64) batchResponse {
	return batchResponse{
		ProjectID:          projectID,
		Total:              p.Total,
		Done:               p.Done,
		Failed:             p.Failed,
		Skipped:            p.Skipped,
		Remaining:          p.Remaining,
		ElapsedSeconds:     p.Elapsed.Seconds(),
		ProjectedRemaining: p.ProjectedRemaining.Seconds(),
		Current:            p.Current,
		Cancelled:          p.Cancelled,
		Finished:           p.Finished,
		TotalCost:          cost,
	}
}

// StartRender launches a background batch over every pending or failed scene
// of the project. Only one batch per project may run at a time.
func (a *App) StartRender(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	var req renderRequest
	if err := decodeBody(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Provider != "" && req.Provider != render.Auto && !capability.Known(req.Provider) {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown provider")
		return
	}
	if _, err := a.Projects.Get(r.Context(), projectID); err != nil {
		a.fail(w, r, err, "project not found")
		return
	}
	scenes, err := a.Scenes.ListByProject(r.Context(), projectID)
	if err != nil {
		a.fail(w, r, err, "failed to list scenes")
		return
	}
	pending := 0
	for _, s := range scenes {
		if s.Status.Renderable() {
			pending++
		}
	}
	if pending == 0 {
		a.error(w, http.StatusUnprocessableEntity, "nothing_to_render", "no pending or failed scenes")
		return
	}

	batch, err := a.Tracker.Start(projectID)
	if err != nil {
		a.fail(w, r, err, "a render is already running for this project")
		return
	}
	batch.Update(render.Progress{Total: pending, Remaining: pending})

	ctx := a.BatchContext
	if ctx == nil {
		ctx = context.WithoutCancel(r.Context())
	}
	log := a.logger(r).With().Str("project_id", projectID).Logger()
	a.batches.Add(1)
	go func() {
		defer a.batches.Done()
		final := a.Runner.RenderAll(ctx, scenes, req.Provider, req.AspectRatio, batch.Cancel, batch.Update)
		a.Tracker.Finish(batch, final)
		log.Info().
			Int("done", final.Done).
			Int("failed", final.Failed).
			Int("skipped", final.Skipped).
			Bool("cancelled", final.Cancelled).
			Dur("elapsed", final.Elapsed).
			Msg("render: batch finished")
	}()

	a.json(w, http.StatusAccepted, toBatchResponse(projectID, batch.Progress(), 0))
}

// CancelRender asks the running batch to stop after its current scene.
func (a *App) CancelRender(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if !a.Tracker.Cancel(projectID) {
		a.error(w, http.StatusNotFound, "not_found", "no render running for this project")
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"project_id": projectID, "cancelling": true})
}

// RenderStatus reports batch progress and the sunk provider cost of the
// project.
func (a *App) RenderStatus(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	cost, err := a.Jobs.SumCost(r.Context(), projectID)
	if err != nil {
		a.fail(w, r, err, "failed to sum cost")
		return
	}
	progress, ok := a.Tracker.Get(projectID)
	if !ok {
		scenes, err := a.Scenes.ListByProject(r.Context(), projectID)
		if err != nil {
			a.fail(w, r, err, "failed to list scenes")
			return
		}
		progress = summarize(scenes)
	}
	a.json(w, http.StatusOK, toBatchResponse(projectID, progress, cost))
}

// summarize derives a finished snapshot from persisted scene states when no
// batch has run in this process.
func summarize(scenes []domain.Scene) render.Progress {
	p := render.Progress{Total: len(scenes), Finished: true}
	for _, s := range scenes {
		switch s.Status {
		case domain.SceneStatusCompleted:
			p.Done++
		case domain.SceneStatusFailed:
			p.Failed++
		default:
			p.Remaining++
		}
	}
	return p
}
