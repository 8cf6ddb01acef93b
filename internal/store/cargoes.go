package store

import (
	"context"

	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateCargo inserts a new Cargo row pointing at specKey.
func (s *Store) CreateCargo(ctx context.Context, c model.Cargo) (model.Cargo, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cargoes (key, name, spec_key, namespace_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.Key, c.Name, c.SpecKey, c.NamespaceName, c.CreatedAt)
	if err != nil {
		return model.Cargo{}, err
	}
	return c, nil
}

// GetCargoByKey reads a Cargo by its primary key.
func (s *Store) GetCargoByKey(ctx context.Context, key string) (model.Cargo, error) {
	var c model.Cargo
	err := s.db.GetContext(ctx, &c, `SELECT * FROM cargoes WHERE key = $1`, key)
	if err != nil {
		return model.Cargo{}, translateNotFound(err, "Cargo", key)
	}
	return c, nil
}

// GetCargoByName reads a Cargo by (namespace, name).
func (s *Store) GetCargoByName(ctx context.Context, namespace, name string) (model.Cargo, error) {
	var c model.Cargo
	err := s.db.GetContext(ctx, &c, `
		SELECT * FROM cargoes WHERE namespace_name = $1 AND name = $2
	`, namespace, name)
	if err != nil {
		return model.Cargo{}, translateNotFound(err, "Cargo", namespace+"/"+name)
	}
	return c, nil
}

// ListCargoes returns cargoes matching f.
func (s *Store) ListCargoes(ctx context.Context, f filter.GenericFilter) ([]model.Cargo, error) {
	query, args, err := buildSelect(entCargo, f)
	if err != nil {
		return nil, err
	}
	var out []model.Cargo
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCargoSpecKey repoints an existing Cargo at a newly minted spec
// revision, used by the Patch path.
func (s *Store) UpdateCargoSpecKey(ctx context.Context, key, specKey string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE cargoes SET spec_key = $2 WHERE key = $1`, key, specKey)
	return err
}

// DeleteCargo removes a Cargo row.
func (s *Store) DeleteCargo(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cargoes WHERE key = $1`, key)
	return err
}
