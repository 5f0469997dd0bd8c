package prompt

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var staticBeats = []struct {
	title    string
	action   string
	camera   string
	lighting string
}{
	{"opening", "establishing the world of %s", "wide establishing shot, slow dolly in", "soft morning light"},
	{"arrival", "%s steps into frame and takes in the surroundings", "medium tracking shot", "natural daylight"},
	{"tension", "the mood shifts as %s faces the central conflict", "handheld close-up", "low-key contrast lighting"},
	{"turning point", "%s makes a decisive choice", "slow push in on the face", "warm rim light"},
	{"resolution", "the story of %s settles into its final image", "crane shot pulling away", "golden hour glow"},
}

// StaticWriter produces a deterministic five-beat structure without any
// remote model. It is the fallback for the model-backed writers.
type StaticWriter struct{}

func NewStaticWriter() *StaticWriter {
	return &StaticWriter{}
}

func (s *StaticWriter) Breakdown(ctx context.Context, brief Brief) ([]SceneDraft, error) {
	title := cases.Title(language.Und)
	if tag, err := language.Parse(brief.Locale); err == nil {
		title = cases.Title(tag)
	}

	subject := coalesce(brief.Project.Name, "the film")
	lead := subject
	var cast []string
	if len(brief.Characters) > 0 {
		lead = brief.Characters[0].Name
		cast = []string{lead}
	}
	tone := coalesce(brief.Project.Tone, brief.Project.Genre, "cinematic")

	count := sceneCount(brief)
	drafts := make([]SceneDraft, 0, count)
	for i := 0; i < count; i++ {
		beat := staticBeats[i%len(staticBeats)]
		focus := subject
		if i%len(staticBeats) != 0 {
			focus = lead
		}
		action := fmt.Sprintf(beat.action, focus)
		drafts = append(drafts, SceneDraft{
			Title:       title.String(beat.title),
			Description: strings.ToUpper(action[:1]) + action[1:],
			Prompt:      fmt.Sprintf("%s, %s, %s, %s tone", action, beat.camera, beat.lighting, tone),
			CameraAngle: beat.camera,
			Lighting:    beat.lighting,
			Duration:    5,
			Characters:  cast,
			Provider:    staticProviderName,
		})
	}
	return drafts, nil
}

var _ ScreenplayWriter = (*StaticWriter)(nil)
