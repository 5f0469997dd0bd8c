package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	minDraftSeconds     = 3
	maxDraftSeconds     = 10
	defaultDraftSeconds = 5
)

type modelBreakdownPayload struct {
	Scenes []SceneDraft `json:"scenes" jsonschema_description:"Ordered list of scenes that make up the film"`
}

func buildBreakdownPrompt(brief Brief) string {
	p := brief.Project
	locale := coalesce(brief.Locale, "en")
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You are a film director breaking a short film into %d shots for an AI video generator. ", sceneCount(brief))
	fmt.Fprintf(sb, "Title=%q, genre=%q, tone=%q. Synopsis: %s\n", p.Name, p.Genre, p.Tone, coalesce(p.Synopsis, "(none)"))
	if len(brief.Characters) > 0 {
		sb.WriteString("Characters:\n")
		for _, c := range brief.Characters {
			fmt.Fprintf(sb, "- %s: %s\n", c.Name, c.Description)
		}
	}
	fmt.Fprintf(sb, "Each scene lasts %d to %d seconds. ", minDraftSeconds, maxDraftSeconds)
	sb.WriteString("Every prompt must stand alone: repeat character appearance, name the camera movement and describe the lighting. ")
	fmt.Fprintf(sb, "Write titles, descriptions and dialog in locale '%s'; keep video prompts in English. ", locale)
	sb.WriteString(`Respond strictly with JSON: {"scenes":[{"title":string,"description":string,"prompt":string,"camera_angle":string,"lighting":string,"duration":int,"dialog":string,"characters":string[]}]}`)
	return sb.String()
}

// normalizeDrafts drops scenes without a prompt, clamps durations and tags
// the provider.
func normalizeDrafts(drafts []SceneDraft, provider string, limit int) []SceneDraft {
	out := make([]SceneDraft, 0, len(drafts))
	for _, d := range drafts {
		d.Prompt = strings.TrimSpace(d.Prompt)
		if d.Prompt == "" {
			continue
		}
		d.Title = coalesce(d.Title, fmt.Sprintf("Scene %d", len(out)+1))
		d.Description = coalesce(d.Description, d.Prompt)
		d.CameraAngle = strings.TrimSpace(d.CameraAngle)
		d.Lighting = strings.TrimSpace(d.Lighting)
		d.Dialog = strings.TrimSpace(d.Dialog)
		switch {
		case d.Duration <= 0:
			d.Duration = defaultDraftSeconds
		case d.Duration < minDraftSeconds:
			d.Duration = minDraftSeconds
		case d.Duration > maxDraftSeconds:
			d.Duration = maxDraftSeconds
		}
		d.Characters = normalizeNames(d.Characters)
		d.Provider = provider
		out = append(out, d)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func normalizeNames(names []string) []string {
	seen := make(map[string]struct{})
	var result []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, n)
	}
	return result
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
