package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/export"
)

// Export streams a zip with the project manifest and its subtitles.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
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
	scenes, err := a.Scenes.ListByProject(r.Context(), projectID)
	if err != nil {
		a.fail(w, r, err, "failed to list scenes")
		return
	}
	cost, err := a.Jobs.SumCost(r.Context(), projectID)
	if err != nil {
		a.fail(w, r, err, "failed to sum cost")
		return
	}
	if characters == nil {
		characters = []domain.Character{}
	}
	data, err := export.Archive(export.Manifest{
		Project:    *project,
		Characters: characters,
		Scenes:     scenes,
		TotalCost:  cost,
		ExportedAt: a.now().UTC(),
	})
	if err != nil {
		a.fail(w, r, err, "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(*project)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
