package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateJob inserts a new Job row.
func (s *Store) CreateJob(ctx context.Context, j model.Job) (model.Job, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (key, data, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, j.Key, []byte(j.Data), nullableJSON(rawOrNil(j.Metadata)), j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return model.Job{}, err
	}
	return j, nil
}

// GetJobByKey reads a Job by its primary key.
func (s *Store) GetJobByKey(ctx context.Context, key string) (model.Job, error) {
	var j model.Job
	err := s.db.GetContext(ctx, &j, `SELECT * FROM jobs WHERE key = $1`, key)
	if err != nil {
		return model.Job{}, translateNotFound(err, "Job", key)
	}
	return j, nil
}

// ListJobs returns jobs matching f.
func (s *Store) ListJobs(ctx context.Context, f filter.GenericFilter) ([]model.Job, error) {
	query, args, err := buildSelect(entJob, f)
	if err != nil {
		return nil, err
	}
	var out []model.Job
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// TouchJob bumps a Job's updated_at, used after patch-style updates.
func (s *Store) TouchJob(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET updated_at = $2 WHERE key = $1`, key, at)
	return err
}

// DeleteJob removes a Job row.
func (s *Store) DeleteJob(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE key = $1`, key)
	return err
}

func rawOrNil(m *json.RawMessage) []byte {
	if m == nil {
		return nil
	}
	return []byte(*m)
}
