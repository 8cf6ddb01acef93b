package store

import (
	"context"

	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateNode registers a new cluster member.
func (s *Store) CreateNode(ctx context.Context, n model.Node) (model.Node, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (name, ip_address, created_at) VALUES ($1, $2, $3)
	`, n.Name, n.IPAddress, n.CreatedAt)
	if err != nil {
		return model.Node{}, err
	}
	return n, nil
}

// GetNode reads a Node by name.
func (s *Store) GetNode(ctx context.Context, name string) (model.Node, error) {
	var n model.Node
	err := s.db.GetContext(ctx, &n, `SELECT * FROM nodes WHERE name = $1`, name)
	if err != nil {
		return model.Node{}, translateNotFound(err, "Node", name)
	}
	return n, nil
}

// ListNodes returns nodes matching f.
func (s *Store) ListNodes(ctx context.Context, f filter.GenericFilter) ([]model.Node, error) {
	query, args, err := buildSelect(entNode, f)
	if err != nil {
		return nil, err
	}
	var out []model.Node
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertNode inserts a node or refreshes its IP if it already exists.
func (s *Store) UpsertNode(ctx context.Context, n model.Node) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (name, ip_address, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET ip_address = EXCLUDED.ip_address
	`, n.Name, n.IPAddress, n.CreatedAt)
	return err
}

// DeleteNode removes a Node row.
func (s *Store) DeleteNode(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE name = $1`, name)
	return err
}
