package store

import (
	"context"

	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateVm inserts a new Vm row pointing at specKey.
func (s *Store) CreateVm(ctx context.Context, v model.Vm) (model.Vm, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vms (key, name, spec_key, namespace_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, v.Key, v.Name, v.SpecKey, v.NamespaceName, v.CreatedAt)
	if err != nil {
		return model.Vm{}, err
	}
	return v, nil
}

// GetVmByKey reads a Vm by its primary key.
func (s *Store) GetVmByKey(ctx context.Context, key string) (model.Vm, error) {
	var v model.Vm
	err := s.db.GetContext(ctx, &v, `SELECT * FROM vms WHERE key = $1`, key)
	if err != nil {
		return model.Vm{}, translateNotFound(err, "Vm", key)
	}
	return v, nil
}

// GetVmByName reads a Vm by (namespace, name).
func (s *Store) GetVmByName(ctx context.Context, namespace, name string) (model.Vm, error) {
	var v model.Vm
	err := s.db.GetContext(ctx, &v, `
		SELECT * FROM vms WHERE namespace_name = $1 AND name = $2
	`, namespace, name)
	if err != nil {
		return model.Vm{}, translateNotFound(err, "Vm", namespace+"/"+name)
	}
	return v, nil
}

// ListVms returns VMs matching f.
func (s *Store) ListVms(ctx context.Context, f filter.GenericFilter) ([]model.Vm, error) {
	query, args, err := buildSelect(entVm, f)
	if err != nil {
		return nil, err
	}
	var out []model.Vm
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateVmSpecKey repoints an existing Vm at a newly minted spec revision.
func (s *Store) UpdateVmSpecKey(ctx context.Context, key, specKey string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE vms SET spec_key = $2 WHERE key = $1`, key, specKey)
	return err
}

// DeleteVm removes a Vm row.
func (s *Store) DeleteVm(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM vms WHERE key = $1`, key)
	return err
}
