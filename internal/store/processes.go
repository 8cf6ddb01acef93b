package store

import (
	"context"
	"time"

	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateProcess inserts a new Process row for one scheduled container.
func (s *Store) CreateProcess(ctx context.Context, p model.Process) (model.Process, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processes (key, name, kind, data, node_key, kind_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.Key, p.Name, p.Kind, []byte(p.Data), p.NodeKey, p.KindKey, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return model.Process{}, err
	}
	return p, nil
}

// GetProcessByKey reads a Process by its primary key.
func (s *Store) GetProcessByKey(ctx context.Context, key string) (model.Process, error) {
	var p model.Process
	err := s.db.GetContext(ctx, &p, `SELECT * FROM processes WHERE key = $1`, key)
	if err != nil {
		return model.Process{}, translateNotFound(err, "Process", key)
	}
	return p, nil
}

// ListProcessesByKindKey returns every Process row for a parent object,
// ordered oldest-first so surplus-replica removal can take the front of the
// slice.
func (s *Store) ListProcessesByKindKey(ctx context.Context, kindKey string) ([]model.Process, error) {
	var out []model.Process
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM processes WHERE kind_key = $1 ORDER BY created_at ASC
	`, kindKey)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListProcesses returns processes matching f.
func (s *Store) ListProcesses(ctx context.Context, f filter.GenericFilter) ([]model.Process, error) {
	query, args, err := buildSelect(entProcess, f)
	if err != nil {
		return nil, err
	}
	var out []model.Process
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// TouchProcess bumps a Process's updated_at and payload, used after a
// runtime-observed state change.
func (s *Store) TouchProcess(ctx context.Context, key string, data []byte, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE processes SET data = $2, updated_at = $3 WHERE key = $1`, key, data, at)
	return err
}

// DeleteProcessByKey removes a Process row unconditionally. Callers must
// have already reconciled the runtime container (or observed it already
// gone) before calling this.
func (s *Store) DeleteProcessByKey(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM processes WHERE key = $1`, key)
	return err
}
