package video

import (
	"strconv"
	"strings"
)

const (
	klingTextPath  = "fal-ai/kling-video/v2.1/master/text-to-video"
	klingImagePath = "fal-ai/kling-video/v2.1/master/image-to-video"
)

// KlingAdapter drives Kling, the motion-specialized provider. It only
// renders 5 or 10 second clips.
type KlingAdapter struct {
	queueAdapter
}

type klingPayload struct {
	Prompt         string  `json:"prompt"`
	Duration       string  `json:"duration"`
	AspectRatio    string  `json:"aspect_ratio,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	CfgScale       float64 `json:"cfg_scale"`
	ImageURL       string  `json:"image_url,omitempty"`
	CameraControl  string  `json:"camera_control,omitempty"`
}

var klingCameraControls = map[string]string{
	"zoom in":   "forward_up",
	"push in":   "forward_up",
	"zoom out":  "down_back",
	"pull back": "down_back",
	"pan left":  "left_turn_forward",
	"pan right": "right_turn_forward",
}

func NewKlingAdapter(client *QueueClient) *KlingAdapter {
	return &KlingAdapter{queueAdapter{
		name:      "kling",
		textPath:  klingTextPath,
		imagePath: klingImagePath,
		client:    client,
		payload:   klingRequest,
		seconds:   func(req Request) int { return klingSeconds(req.Duration) },
	}}
}

func klingRequest(req Request) any {
	prompt := strings.TrimSpace(req.Prompt)
	movement := strings.ToLower(strings.TrimSpace(req.CameraMovement))
	control, known := klingCameraControls[movement]
	if movement != "" && !known {
		prompt += ", camera " + movement
	}
	payload := klingPayload{
		Prompt:         prompt,
		Duration:       strconv.Itoa(klingSeconds(req.Duration)),
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		CfgScale:       0.5,
		CameraControl:  control,
	}
	if req.HasImage() {
		payload.ImageURL = strings.TrimSpace(req.ImageURL)
	} else {
		payload.AspectRatio = req.AspectRatio
	}
	return payload
}

func klingSeconds(seconds int) int {
	if seconds <= 5 {
		return 5
	}
	return 10
}

var _ Adapter = (*KlingAdapter)(nil)
