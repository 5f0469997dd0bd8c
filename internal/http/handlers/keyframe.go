package handlers

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/providers/keyframe"
)

// KeyframeGenerator renders still conditioning images.
type KeyframeGenerator interface {
	Generate(ctx context.Context, req keyframe.Request) (*keyframe.Image, error)
}

type keyframeRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	AspectRatio    string `json:"aspect_ratio"`
	Seed           int    `json:"seed"`
}

// Keyframe generates a still for a scene and stores it as the scene's
// conditioning image, so the next render goes through image-to-video.
func (a *App) Keyframe(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "id")
	var req keyframeRequest
	if err := decodeBody(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	scene, err := a.Scenes.Get(r.Context(), sceneID)
	if err != nil {
		a.fail(w, r, err, "scene not found")
		return
	}
	if scene.Status == domain.SceneStatusGenerating {
		a.fail(w, r, domain.ErrRenderInProgress, "scene is rendering")
		return
	}
	if a.Keyframes == nil {
		a.error(w, http.StatusServiceUnavailable, "missing_credentials", "keyframe generation is not configured")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = keyframe.ScenePrompt(*scene)
	}
	img, err := a.Keyframes.Generate(r.Context(), keyframe.Request{
		Prompt:         prompt,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
		Seed:           req.Seed,
	})
	if err != nil {
		a.fail(w, r, err, "failed to generate keyframe")
		return
	}
	ext := ".png"
	if strings.Contains(img.ContentType, "jpeg") {
		ext = ".jpg"
	}
	url, err := a.Blobs.Put(r.Context(), path.Join("keyframes", scene.ProjectID, scene.ID+ext), img.Data, img.ContentType)
	if err != nil {
		a.fail(w, r, err, "failed to store keyframe")
		return
	}
	if err := a.Scenes.SetImage(r.Context(), scene.ID, url); err != nil {
		a.fail(w, r, err, "failed to update scene")
		return
	}
	a.logger(r).Info().
		Str("scene_id", scene.ID).
		Int("width", img.Width).
		Int("height", img.Height).
		Msg("keyframe: stored")
	a.json(w, http.StatusCreated, map[string]any{
		"scene_id":  scene.ID,
		"image_url": url,
		"width":     img.Width,
		"height":    img.Height,
	})
}
