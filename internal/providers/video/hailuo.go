package video

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	hailuoTextPath  = "fal-ai/minimax/hailuo-02/standard/text-to-video"
	hailuoImagePath = "fal-ai/minimax/hailuo-02/standard/image-to-video"
)

// HailuoAdapter drives Hailuo, preferred for faces and performances. Its
// prompt optimizer reacts badly to quality buzzwords, so they are removed.
type HailuoAdapter struct {
	queueAdapter
}

type hailuoPayload struct {
	Prompt          string `json:"prompt"`
	Duration        string `json:"duration"`
	PromptOptimizer bool   `json:"prompt_optimizer"`
	ImageURL        string `json:"image_url,omitempty"`
}

var (
	hailuoBuzzwords = regexp.MustCompile(`(?i)\b(4k|8k|uhd|masterpiece|best quality|ultra[- ]detailed|highly detailed|hyper-?realistic|photorealistic|trending on artstation|award[- ]winning)\b`)
	hailuoSpaces    = regexp.MustCompile(`\s{2,}`)
	hailuoCommas    = regexp.MustCompile(`\s*,(\s*,)+`)
)

func NewHailuoAdapter(client *QueueClient) *HailuoAdapter {
	return &HailuoAdapter{queueAdapter{
		name:      "hailuo",
		textPath:  hailuoTextPath,
		imagePath: hailuoImagePath,
		client:    client,
		payload:   hailuoRequest,
		seconds:   func(req Request) int { return hailuoSeconds(req.Duration) },
	}}
}

func hailuoSeconds(seconds int) int {
	if seconds > 6 {
		return 10
	}
	return 6
}

func hailuoRequest(req Request) any {
	return hailuoPayload{
		Prompt:          CleanHailuoPrompt(req.Prompt),
		Duration:        strconv.Itoa(hailuoSeconds(req.Duration)),
		PromptOptimizer: true,
		ImageURL:        strings.TrimSpace(req.ImageURL),
	}
}

// CleanHailuoPrompt strips quality buzzwords and the punctuation they leave.
func CleanHailuoPrompt(prompt string) string {
	out := hailuoBuzzwords.ReplaceAllString(prompt, "")
	out = hailuoCommas.ReplaceAllString(out, ",")
	out = hailuoSpaces.ReplaceAllString(out, " ")
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(out), ","))
}

var _ Adapter = (*HailuoAdapter)(nil)
