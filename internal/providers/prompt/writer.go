// Package prompt turns a project brief into scene drafts with a text model.
package prompt

import (
	"context"
	"errors"

	"studio/internal/domain"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"

	defaultSceneCount = 5
	maxSceneCount     = 12
)

// Brief is everything a writer needs to break a film into scenes.
type Brief struct {
	Project    domain.Project
	Characters []domain.Character
	SceneCount int
	Locale     string
}

// SceneDraft is one scene proposed by a writer, not yet persisted.
type SceneDraft struct {
	Title       string   `json:"title" jsonschema_description:"Short scene title"`
	Description string   `json:"description" jsonschema_description:"What happens in the scene, plain prose"`
	Prompt      string   `json:"prompt" jsonschema_description:"A single text-to-video prompt describing subject, action, setting and camera movement"`
	CameraAngle string   `json:"camera_angle" jsonschema_description:"Camera angle or movement, e.g. wide shot, close-up, tracking shot"`
	Lighting    string   `json:"lighting" jsonschema_description:"Lighting description"`
	Duration    int      `json:"duration" jsonschema_description:"Scene length in seconds between 3 and 10"`
	Dialog      string   `json:"dialog" jsonschema_description:"Spoken line for the scene, empty when silent"`
	Characters  []string `json:"characters" jsonschema_description:"Names of characters appearing in the scene"`
	Provider    string   `json:"-"`
}

// ScreenplayWriter breaks a brief into ordered scene drafts.
type ScreenplayWriter interface {
	Breakdown(ctx context.Context, brief Brief) ([]SceneDraft, error)
}

var errEmptyBreakdown = errors.New("no scenes returned")

// Scenes converts drafts into domain scenes numbered from one.
func Scenes(projectID string, drafts []SceneDraft) []domain.Scene {
	scenes := make([]domain.Scene, 0, len(drafts))
	for i, d := range drafts {
		scenes = append(scenes, domain.Scene{
			ProjectID:   projectID,
			Number:      i + 1,
			Title:       d.Title,
			Description: d.Description,
			Prompt:      d.Prompt,
			CameraAngle: d.CameraAngle,
			Lighting:    d.Lighting,
			Duration:    d.Duration,
			Dialog:      d.Dialog,
			Characters:  append([]string(nil), d.Characters...),
			Status:      domain.SceneStatusPending,
			SortOrder:   i,
		})
	}
	return scenes
}

func sceneCount(brief Brief) int {
	switch {
	case brief.SceneCount <= 0:
		return defaultSceneCount
	case brief.SceneCount > maxSceneCount:
		return maxSceneCount
	default:
		return brief.SceneCount
	}
}
