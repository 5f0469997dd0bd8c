package history

import (
	"context"
	"fmt"
	"time"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// PostgresStore keeps the history in the render_history table.
type PostgresStore struct {
	sql infra.SQLExecutor
}

func NewPostgresStore(sql infra.SQLExecutor) *PostgresStore {
	return &PostgresStore{sql: sql}
}

func (s *PostgresStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectRenderHistory, MaxRecords)
	if err != nil {
		return nil, fmt.Errorf("query render history: %w", err)
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		var completedAt time.Time
		if err := rows.Scan(&rec.Provider, &rec.Duration, &rec.ActualSeconds, &rec.HasImage, &rec.PromptLength, &rec.AspectRatio, &completedAt); err != nil {
			return nil, fmt.Errorf("scan render history: %w", err)
		}
		rec.CompletedAt = completedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Append inserts rec and prunes everything beyond MaxRecords.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	if err := s.insert(ctx, rec); err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QPruneRenderHistory, MaxRecords); err != nil {
		return fmt.Errorf("prune render history: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, records []Record) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QClearRenderHistory); err != nil {
		return fmt.Errorf("clear render history: %w", err)
	}
	for _, rec := range Trim(records) {
		if err := s.insert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) insert(ctx context.Context, rec Record) error {
	_, err := s.sql.Exec(ctx, sqlinline.QInsertRenderHistory,
		rec.Provider,
		rec.Duration,
		rec.ActualSeconds,
		rec.HasImage,
		rec.PromptLength,
		rec.AspectRatio,
		rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert render history: %w", err)
	}
	return nil
}

var (
	_ Port     = (*PostgresStore)(nil)
	_ Appender = (*PostgresStore)(nil)
)
