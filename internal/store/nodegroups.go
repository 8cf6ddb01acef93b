package store

import (
	"context"

	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateNodeGroup registers a named placement group.
func (s *Store) CreateNodeGroup(ctx context.Context, name string) (model.NodeGroup, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO node_groups (name) VALUES ($1)`, name)
	if err != nil {
		return model.NodeGroup{}, err
	}
	return model.NodeGroup{Name: name}, nil
}

// LinkNodeToGroup adds node to group, idempotently.
func (s *Store) LinkNodeToGroup(ctx context.Context, nodeName, groupName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node_group_links (node_name, node_group_name)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, nodeName, groupName)
	return err
}

// ListNodesInGroup returns the node names belonging to groupName.
func (s *Store) ListNodesInGroup(ctx context.Context, groupName string) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `
		SELECT node_name FROM node_group_links WHERE node_group_name = $1
	`, groupName)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ListGroupsForNode returns the group names nodeName belongs to.
func (s *Store) ListGroupsForNode(ctx context.Context, nodeName string) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `
		SELECT node_group_name FROM node_group_links WHERE node_name = $1
	`, nodeName)
	if err != nil {
		return nil, err
	}
	return names, nil
}
