package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/providers/prompt"
)

// ProjectScenes lists the scenes of a project in render order.
func (a *App) ProjectScenes(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if _, err := a.Projects.Get(r.Context(), projectID); err != nil {
		a.fail(w, r, err, "project not found")
		return
	}
	scenes, err := a.Scenes.ListByProject(r.Context(), projectID)
	if err != nil {
		a.fail(w, r, err, "failed to list scenes")
		return
	}
	if scenes == nil {
		scenes = []domain.Scene{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": scenes})
}

type screenplayRequest struct {
	SceneCount int    `json:"scene_count"`
	Locale     string `json:"locale"`
}

// Screenplay breaks the project synopsis into scenes with the configured
// writer and appends them to the project.
func (a *App) Screenplay(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	var req screenplayRequest
	if err := decodeBody(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	project, err := a.Projects.Get(r.Context(), projectID)
	if err != nil {
		a.fail(w, r, err, "project not found")
		return
	}
	characters, err := a.Projects.ListCharacters(r.Context(), projectID)
	if err != nil {
		a.fail(w, r, err, "failed to load characters")
		return
	}
	existing, err := a.Scenes.ListByProject(r.Context(), projectID)
	if err != nil {
		a.fail(w, r, err, "failed to list scenes")
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}
	drafts, err := a.Writer.Breakdown(r.Context(), prompt.Brief{
		Project:    *project,
		Characters: characters,
		SceneCount: req.SceneCount,
		Locale:     locale,
	})
	if err != nil {
		a.fail(w, r, err, "failed to write screenplay")
		return
	}

	scenes := prompt.Scenes(projectID, drafts)
	offset := len(existing)
	for i := range scenes {
		scenes[i].Number += offset
		scenes[i].SortOrder += offset
		if err := a.Scenes.Create(r.Context(), &scenes[i]); err != nil {
			a.fail(w, r, err, "failed to save scene")
			return
		}
	}
	provider := ""
	if len(drafts) > 0 {
		provider = drafts[0].Provider
	}
	a.logger(r).Info().
		Str("project_id", projectID).
		Int("scenes", len(scenes)).
		Str("writer", provider).
		Msg("screenplay: scenes created")
	a.json(w, http.StatusCreated, map[string]any{"items": scenes, "writer": provider})
}
