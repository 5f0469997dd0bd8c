package video

import "strings"

const (
	wanTextPath  = "fal-ai/wan/v2.2-a14b/text-to-video"
	wanImagePath = "fal-ai/wan/v2.2-a14b/image-to-video"
	wanFPS       = 16
)

// WanAdapter drives Wan 2.2, the balanced default provider.
type WanAdapter struct {
	queueAdapter
}

type wanPayload struct {
	Prompt          string `json:"prompt"`
	NegativePrompt  string `json:"negative_prompt,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	NumFrames       int    `json:"num_frames"`
	FramesPerSecond int    `json:"frames_per_second"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	Resolution      string `json:"resolution"`
	Seed            *int   `json:"seed,omitempty"`
}

func NewWanAdapter(client *QueueClient) *WanAdapter {
	return &WanAdapter{queueAdapter{
		name:      "wan",
		textPath:  wanTextPath,
		imagePath: wanImagePath,
		client:    client,
		payload:   wanRequest,
	}}
}

func wanRequest(req Request) any {
	prompt := strings.TrimSpace(req.Prompt)
	if style := strings.TrimSpace(req.Style); style != "" {
		prompt += ", " + style + " style"
	}
	return wanPayload{
		Prompt:          prompt,
		NegativePrompt:  strings.TrimSpace(req.NegativePrompt),
		ImageURL:        strings.TrimSpace(req.ImageURL),
		NumFrames:       req.Duration*wanFPS + 1,
		FramesPerSecond: wanFPS,
		AspectRatio:     req.AspectRatio,
		Resolution:      "720p",
		Seed:            optionalSeed(req.Seed),
	}
}

var _ Adapter = (*WanAdapter)(nil)
