package repo

import (
	"context"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewProjectRepository creates a project repository backed by PostgreSQL.
func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// Get fetches a project by id.
func (r *ProjectRepositoryPG) Get(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := r.sql.QueryRow(ctx, sqlinline.QSelectProject, id).Scan(&p.ID, &p.Name, &p.Genre, &p.Synopsis, &p.Tone)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListCharacters returns the cast in creation order.
func (r *ProjectRepositoryPG) ListCharacters(ctx context.Context, projectID string) ([]domain.Character, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListCharactersByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Character
	for rows.Next() {
		var c domain.Character
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListRenderable returns ids of projects holding pending or failed scenes.
func (r *ProjectRepositoryPG) ListRenderable(ctx context.Context) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRenderableProjects)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
