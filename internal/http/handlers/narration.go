package handlers

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

type narrationRequest struct {
	VoiceID string `json:"voice_id"`
	Text    string `json:"text"`
}

// Narration synthesizes a scene's dialog, or an explicit text override, and
// stores the audio next to the rendered clips.
func (a *App) Narration(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "id")
	var req narrationRequest
	if err := decodeBody(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	scene, err := a.Scenes.Get(r.Context(), sceneID)
	if err != nil {
		a.fail(w, r, err, "scene not found")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = strings.TrimSpace(scene.Dialog)
	}
	if text == "" {
		a.error(w, http.StatusUnprocessableEntity, "no_dialog", "scene has no dialog to narrate")
		return
	}
	if a.Speech == nil {
		a.error(w, http.StatusServiceUnavailable, "missing_credentials", "text-to-speech is not configured")
		return
	}
	audio, err := a.Speech.Synthesize(r.Context(), text, req.VoiceID)
	if err != nil {
		a.fail(w, r, err, "failed to synthesize narration")
		return
	}
	key := path.Join("narration", scene.ProjectID, scene.ID+".mp3")
	url, err := a.Blobs.Put(r.Context(), key, audio.Data, audio.ContentType)
	if err != nil {
		a.fail(w, r, err, "failed to store narration")
		return
	}
	a.logger(r).Info().
		Str("scene_id", scene.ID).
		Int("bytes", len(audio.Data)).
		Msg("narration: stored")
	a.json(w, http.StatusCreated, map[string]any{
		"scene_id":     scene.ID,
		"url":          url,
		"content_type": audio.ContentType,
		"bytes":        len(audio.Data),
	})
}
