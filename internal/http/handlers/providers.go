package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"studio/internal/capability"
	"studio/internal/estimate"
	"studio/internal/history"
	"studio/internal/render"
)

type providerDTO struct {
	Key                    string   `json:"key"`
	Name                   string   `json:"name"`
	MaxDuration            int      `json:"max_duration"`
	AspectRatios           []string `json:"aspect_ratios"`
	SupportsImage          bool     `json:"supports_image"`
	SupportsNegativePrompt bool     `json:"supports_negative_prompt"`
	SupportsSeed           bool     `json:"supports_seed"`
	SupportsCameraMovement bool     `json:"supports_camera_movement"`
	SupportsStylePreset    bool     `json:"supports_style_preset"`
	CostPerSecond          float64  `json:"cost_per_second"`
	Notes                  string   `json:"notes"`
	Registered             bool     `json:"registered"`
	Confidence             string   `json:"confidence"`
}

// Providers lists the capability table with the estimator's confidence for
// each provider.
func (a *App) Providers(w http.ResponseWriter, r *http.Request) {
	records := a.timings(r)
	items := make([]providerDTO, 0, len(capability.Keys()))
	for _, rec := range capability.All() {
		_, registered := a.Adapters.Get(rec.Key)
		items = append(items, providerDTO{
			Key:                    rec.Key,
			Name:                   rec.Name,
			MaxDuration:            rec.MaxDuration,
			AspectRatios:           rec.AspectRatios,
			SupportsImage:          rec.SupportsImage,
			SupportsNegativePrompt: rec.SupportsNegativePrompt,
			SupportsSeed:           rec.SupportsSeed,
			SupportsCameraMovement: rec.SupportsCameraMovement,
			SupportsStylePreset:    rec.SupportsStylePreset,
			CostPerSecond:          rec.CostPerSecond,
			Notes:                  rec.Notes,
			Registered:             registered,
			Confidence:             string(a.Estimator.Confidence(rec.Key, records)),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items, "default": capability.Default})
}

type estimateResponse struct {
	Provider         string  `json:"provider"`
	Duration         int     `json:"duration"`
	EstimatedSeconds int     `json:"estimated_seconds"`
	Confidence       string  `json:"confidence"`
	Cost             float64 `json:"cost"`
}

// timings returns the render history, reloading it first when the worker may
// have recorded new jobs.
func (a *App) timings(r *http.Request) []history.Record {
	if err := a.History.Refresh(r.Context()); err != nil {
		a.logger(r).Warn().Err(err).Msg("history: refresh failed, using cached records")
	}
	return a.History.Snapshot()
}

func (a *App) estimateFor(records []history.Record, provider string, duration int, hasImage bool, promptLength int, aspect string) estimateResponse {
	return estimateResponse{
		Provider: provider,
		Duration: duration,
		EstimatedSeconds: a.Estimator.Duration(provider, duration, estimate.Context{
			HasImage:     hasImage,
			PromptLength: promptLength,
			AspectRatio:  aspect,
			History:      records,
		}),
		Confidence: string(a.Estimator.Confidence(provider, records)),
		Cost:       capability.EstimateCost(provider, duration),
	}
}

// Estimate predicts render time and cost for query parameters provider,
// duration, has_image, prompt_length and aspect_ratio.
func (a *App) Estimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, rec := capability.Resolve(q.Get("provider"))
	duration, err := strconv.Atoi(coalesceQuery(q.Get("duration"), "5"))
	if err != nil || duration <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "duration must be a positive integer")
		return
	}
	promptLength, _ := strconv.Atoi(q.Get("prompt_length"))
	hasImage, _ := strconv.ParseBool(q.Get("has_image"))
	aspect := coalesceQuery(q.Get("aspect_ratio"), capability.DefaultAspect)
	a.json(w, http.StatusOK, a.estimateFor(a.timings(r), key, rec.ClampDuration(duration), hasImage, promptLength, aspect))
}

type routeRequest struct {
	Provider       string `json:"provider"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	ImageURL       string `json:"image_url"`
	Duration       int    `json:"duration"`
	AspectRatio    string `json:"aspect_ratio"`
	Seed           int    `json:"seed"`
	CameraMovement string `json:"camera_movement"`
	Style          string `json:"style"`
}

type routeResponse struct {
	Provider string `json:"provider"`
	Rule     string `json:"rule,omitempty"`
	Request  struct {
		Prompt         string `json:"prompt"`
		NegativePrompt string `json:"negative_prompt,omitempty"`
		ImageURL       string `json:"image_url,omitempty"`
		Duration       int    `json:"duration"`
		AspectRatio    string `json:"aspect_ratio"`
		Seed           int    `json:"seed,omitempty"`
		CameraMovement string `json:"camera_movement,omitempty"`
		Style          string `json:"style,omitempty"`
	} `json:"request"`
	Estimate estimateResponse `json:"estimate"`
}

// Route previews provider selection and request normalization without
// submitting anything.
func (a *App) Route(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := decodeBody(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	params := render.Params{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		ImageURL:       req.ImageURL,
		Duration:       req.Duration,
		AspectRatio:    req.AspectRatio,
		Seed:           req.Seed,
		CameraMovement: req.CameraMovement,
		Style:          req.Style,
	}
	key, normalized := a.Router.Plan(params, req.Provider)

	var resp routeResponse
	resp.Provider = key
	if sel := strings.TrimSpace(req.Provider); sel == "" || strings.EqualFold(sel, render.Auto) {
		resp.Rule = render.MatchingRule(params.Prompt, params.Duration, strings.TrimSpace(params.ImageURL) != "")
	}
	resp.Request.Prompt = normalized.Prompt
	resp.Request.NegativePrompt = normalized.NegativePrompt
	resp.Request.ImageURL = normalized.ImageURL
	resp.Request.Duration = normalized.Duration
	resp.Request.AspectRatio = normalized.AspectRatio
	resp.Request.Seed = normalized.Seed
	resp.Request.CameraMovement = normalized.CameraMovement
	resp.Request.Style = normalized.Style
	resp.Estimate = a.estimateFor(a.timings(r), key, normalized.Duration, normalized.HasImage(), len([]rune(normalized.Prompt)), normalized.AspectRatio)
	a.json(w, http.StatusOK, resp)
}

func coalesceQuery(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}
