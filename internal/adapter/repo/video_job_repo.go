package repo

import (
	"context"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// VideoJobRepositoryPG implements domain.VideoJobRepository.
type VideoJobRepositoryPG struct {
	sql infra.SQLExecutor
	now func() time.Time
}

// NewVideoJobRepository creates a video job repository backed by PostgreSQL.
func NewVideoJobRepository(sql infra.SQLExecutor) *VideoJobRepositoryPG {
	return &VideoJobRepositoryPG{sql: sql, now: time.Now}
}

// Start records a submission together with its estimated cost.
func (r *VideoJobRepositoryPG) Start(ctx context.Context, job *domain.VideoJob) error {
	if job.StartedAt.IsZero() {
		job.StartedAt = r.now().UTC()
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertVideoJob,
		job.ID,
		job.SceneID,
		job.Provider,
		job.ExternalID,
		job.Cost,
		job.StartedAt,
	)
	return err
}

// Finish stamps the terminal status. Cost stays as logged.
func (r *VideoJobRepositoryPG) Finish(ctx context.Context, id string, status domain.JobStatus, videoURL string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QFinishVideoJob, id, string(status), videoURL, r.now().UTC())
	return err
}

// SumCost totals every logged submission of a project, failed ones included.
func (r *VideoJobRepositoryPG) SumCost(ctx context.Context, projectID string) (float64, error) {
	var total float64
	if err := r.sql.QueryRow(ctx, sqlinline.QSumVideoJobCost, projectID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

var _ domain.VideoJobRepository = (*VideoJobRepositoryPG)(nil)
