package store

import (
	"context"

	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateResourceKind registers a resource kind's validation/lifecycle spec.
func (s *Store) CreateResourceKind(ctx context.Context, rk model.ResourceKind) (model.ResourceKind, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resource_kinds (name, spec_key, created_at) VALUES ($1, $2, $3)
	`, rk.Name, rk.SpecKey, rk.CreatedAt)
	if err != nil {
		return model.ResourceKind{}, err
	}
	return rk, nil
}

// GetResourceKind reads a resource kind by name.
func (s *Store) GetResourceKind(ctx context.Context, name string) (model.ResourceKind, error) {
	var rk model.ResourceKind
	err := s.db.GetContext(ctx, &rk, `SELECT * FROM resource_kinds WHERE name = $1`, name)
	if err != nil {
		return model.ResourceKind{}, translateNotFound(err, "ResourceKind", name)
	}
	return rk, nil
}

// CreateResource inserts a new Resource row.
func (s *Store) CreateResource(ctx context.Context, r model.Resource) (model.Resource, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resources (key, kind, spec_key, created_at) VALUES ($1, $2, $3, $4)
	`, r.Key, r.Kind, r.SpecKey, r.CreatedAt)
	if err != nil {
		return model.Resource{}, err
	}
	return r, nil
}

// GetResourceByKey reads a Resource by its primary key.
func (s *Store) GetResourceByKey(ctx context.Context, key string) (model.Resource, error) {
	var r model.Resource
	err := s.db.GetContext(ctx, &r, `SELECT * FROM resources WHERE key = $1`, key)
	if err != nil {
		return model.Resource{}, translateNotFound(err, "Resource", key)
	}
	return r, nil
}

// ListResources returns resources matching f.
func (s *Store) ListResources(ctx context.Context, f filter.GenericFilter) ([]model.Resource, error) {
	query, args, err := buildSelect(entResource, f)
	if err != nil {
		return nil, err
	}
	var out []model.Resource
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateResourceSpecKey repoints a Resource at a newly minted spec revision.
func (s *Store) UpdateResourceSpecKey(ctx context.Context, key, specKey string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE resources SET spec_key = $2 WHERE key = $1`, key, specKey)
	return err
}

// DeleteResource removes a Resource row.
func (s *Store) DeleteResource(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE key = $1`, key)
	return err
}
