package domain

import "context"

// ProjectRepository reads projects and their cast.
type ProjectRepository interface {
	Get(ctx context.Context, id string) (*Project, error)
	ListCharacters(ctx context.Context, projectID string) ([]Character, error)
	ListRenderable(ctx context.Context) ([]string, error)
}

// SceneRepository persists scenes and their render status. Claim moves a
// pending or failed scene to generating and reports false when another
// renderer got there first.
type SceneRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]Scene, error)
	Get(ctx context.Context, id string) (*Scene, error)
	Create(ctx context.Context, scene *Scene) error
	Claim(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id string, update SceneUpdate) error
	SetImage(ctx context.Context, id, imageURL string) error
}

// VideoJobRepository writes the per-submission audit log.
type VideoJobRepository interface {
	Start(ctx context.Context, job *VideoJob) error
	Finish(ctx context.Context, id string, status JobStatus, videoURL string) error
	SumCost(ctx context.Context, projectID string) (float64, error)
}
