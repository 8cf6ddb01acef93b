package store

import (
	"context"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateNamespace inserts a new namespace row.
func (s *Store) CreateNamespace(ctx context.Context, ns model.Namespace) (model.Namespace, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO namespaces (name, created_at) VALUES ($1, $2)`, ns.Name, ns.CreatedAt)
	if err != nil {
		return model.Namespace{}, err
	}
	return ns, nil
}

// GetNamespace reads a namespace by its primary key.
func (s *Store) GetNamespace(ctx context.Context, name string) (model.Namespace, error) {
	var ns model.Namespace
	err := s.db.GetContext(ctx, &ns, `SELECT * FROM namespaces WHERE name = $1`, name)
	if err != nil {
		return model.Namespace{}, translateNotFound(err, "Namespace", name)
	}
	return ns, nil
}

// ListNamespaces returns namespaces matching f.
func (s *Store) ListNamespaces(ctx context.Context, f filter.GenericFilter) ([]model.Namespace, error) {
	query, args, err := buildSelect(entNamespace, f)
	if err != nil {
		return nil, err
	}
	var out []model.Namespace
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteNamespace removes a namespace by name.
func (s *Store) DeleteNamespace(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM namespaces WHERE name = $1`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("Namespace", name)
	}
	return nil
}
