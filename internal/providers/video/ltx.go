package video

import "strings"

const (
	ltxTextPath  = "fal-ai/ltx-video-13b-distilled"
	ltxImagePath = "fal-ai/ltx-video-13b-distilled/image-to-video"
	ltxFPS       = 24
)

// LTXAdapter drives the fast distilled LTX model used for short clips.
type LTXAdapter struct {
	queueAdapter
}

type ltxPayload struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	NumFrames      int    `json:"num_frames"`
	FrameRate      int    `json:"frame_rate"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Resolution     string `json:"resolution"`
	Seed           *int   `json:"seed,omitempty"`
}

func NewLTXAdapter(client *QueueClient) *LTXAdapter {
	return &LTXAdapter{queueAdapter{
		name:      "ltx",
		textPath:  ltxTextPath,
		imagePath: ltxImagePath,
		client:    client,
		payload:   ltxRequest,
	}}
}

func ltxRequest(req Request) any {
	return ltxPayload{
		Prompt:         strings.TrimSpace(req.Prompt),
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		ImageURL:       strings.TrimSpace(req.ImageURL),
		NumFrames:      req.Duration*ltxFPS + 1,
		FrameRate:      ltxFPS,
		AspectRatio:    req.AspectRatio,
		Resolution:     "720p",
		Seed:           optionalSeed(req.Seed),
	}
}

var _ Adapter = (*LTXAdapter)(nil)
