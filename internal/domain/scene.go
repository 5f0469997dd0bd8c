package domain

// SceneStatus tracks a scene through rendering. Failed scenes are retryable.
type SceneStatus string

const (
	SceneStatusPending    SceneStatus = "pending"
	SceneStatusGenerating SceneStatus = "generating"
	SceneStatusCompleted  SceneStatus = "completed"
	SceneStatusFailed     SceneStatus = "failed"
)

// Renderable reports whether a batch run should pick the scene up.
func (s SceneStatus) Renderable() bool {
	return s == SceneStatusPending || s == SceneStatusFailed
}

// Scene is one shot of the film and the unit of video generation.
type Scene struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Number      int         `json:"scene_number"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Prompt      string      `json:"prompt"`
	CameraAngle string      `json:"camera_angle"`
	Lighting    string      `json:"lighting"`
	Duration    int         `json:"duration"`
	Dialog      string      `json:"dialog"`
	Characters  []string    `json:"characters"`
	Status      SceneStatus `json:"status"`
	VideoURL    string      `json:"video_url,omitempty"`
	ImageURL    string      `json:"image_url,omitempty"`
	Provider    string      `json:"provider,omitempty"`
	Error       string      `json:"error,omitempty"`
	SortOrder   int         `json:"sort_order"`
}

// SceneUpdate is the status transition persisted after each render step.
type SceneUpdate struct {
	Status   SceneStatus
	VideoURL string
	Error    string
	Provider string
}
