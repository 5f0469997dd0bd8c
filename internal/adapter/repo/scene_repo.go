package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// StaleRenderError is stored on scenes reset by ResetStale.
const StaleRenderError = "render interrupted before the provider finished"

// SceneRepositoryPG implements domain.SceneRepository.
type SceneRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewSceneRepository creates a scene repository backed by PostgreSQL.
func NewSceneRepository(sql infra.SQLExecutor) *SceneRepositoryPG {
	return &SceneRepositoryPG{sql: sql}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(row rowScanner) (*domain.Scene, error) {
	var scene domain.Scene
	var status string
	var charactersJSON string
	if err := row.Scan(
		&scene.ID,
		&scene.ProjectID,
		&scene.Number,
		&scene.Title,
		&scene.Description,
		&scene.Prompt,
		&scene.CameraAngle,
		&scene.Lighting,
		&scene.Duration,
		&scene.Dialog,
		&charactersJSON,
		&status,
		&scene.VideoURL,
		&scene.ImageURL,
		&scene.Provider,
		&scene.Error,
		&scene.SortOrder,
	); err != nil {
		return nil, err
	}
	scene.Status = domain.SceneStatus(status)
	if charactersJSON != "" {
		if err := json.Unmarshal([]byte(charactersJSON), &scene.Characters); err != nil {
			return nil, fmt.Errorf("decode characters of scene %s: %w", scene.ID, err)
		}
	}
	return &scene, nil
}

// ListByProject returns scenes in storyboard order.
func (r *SceneRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]domain.Scene, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListScenesByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []domain.Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, *scene)
	}
	return scenes, rows.Err()
}

// Get fetches a scene by id.
func (r *SceneRepositoryPG) Get(ctx context.Context, id string) (*domain.Scene, error) {
	scene, err := scanScene(r.sql.QueryRow(ctx, sqlinline.QSelectScene, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return scene, nil
}

// Create inserts a new pending scene.
func (r *SceneRepositoryPG) Create(ctx context.Context, scene *domain.Scene) error {
	characters := scene.Characters
	if characters == nil {
		characters = []string{}
	}
	charactersJSON, err := json.Marshal(characters)
	if err != nil {
		return err
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertScene,
		scene.ID,
		scene.ProjectID,
		scene.Number,
		scene.Title,
		scene.Description,
		scene.Prompt,
		scene.CameraAngle,
		scene.Lighting,
		scene.Duration,
		scene.Dialog,
		string(charactersJSON),
		scene.SortOrder,
	)
	if err != nil {
		return err
	}
	scene.Status = domain.SceneStatusPending
	return nil
}

// Claim marks the scene generating only if it is still pending or failed.
func (r *SceneRepositoryPG) Claim(ctx context.Context, id string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QClaimScene, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ResetStale fails scenes left generating since before cutoff, which happens
// when a process stops mid-render. It returns the number of scenes reset.
func (r *SceneRepositoryPG) ResetStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QResetStaleScenes, cutoff.UTC(), StaleRenderError)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateStatus persists a render transition. An empty provider keeps the
// stored one.
func (r *SceneRepositoryPG) UpdateStatus(ctx context.Context, id string, update domain.SceneUpdate) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateSceneStatus,
		id,
		string(update.Status),
		update.VideoURL,
		update.Error,
		update.Provider,
	)
	return err
}

// SetImage stores the conditioning image used by image-to-video providers.
func (r *SceneRepositoryPG) SetImage(ctx context.Context, id, imageURL string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateSceneImage, id, imageURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.SceneRepository = (*SceneRepositoryPG)(nil)
