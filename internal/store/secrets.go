package store

import (
	"context"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateSecret inserts a new Secret row. The caller is responsible for
// encrypting Data before it reaches this layer.
func (s *Store) CreateSecret(ctx context.Context, sec model.Secret) (model.Secret, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secrets (key, kind, immutable, data, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sec.Key, sec.Kind, sec.Immutable, []byte(sec.Data), nullableJSON(rawOrNil(sec.Metadata)), sec.CreatedAt, sec.UpdatedAt)
	if err != nil {
		return model.Secret{}, err
	}
	return sec, nil
}

// GetSecretByKey reads a Secret by its primary key.
func (s *Store) GetSecretByKey(ctx context.Context, key string) (model.Secret, error) {
	var sec model.Secret
	err := s.db.GetContext(ctx, &sec, `SELECT * FROM secrets WHERE key = $1`, key)
	if err != nil {
		return model.Secret{}, translateNotFound(err, "Secret", key)
	}
	return sec, nil
}

// ListSecrets returns secrets matching f.
func (s *Store) ListSecrets(ctx context.Context, f filter.GenericFilter) ([]model.Secret, error) {
	query, args, err := buildSelect(entSecret, f)
	if err != nil {
		return nil, err
	}
	var out []model.Secret
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSecret overwrites a mutable Secret's payload. Callers must check
// Immutable before calling; the store itself enforces it too as a last
// line of defense.
func (s *Store) UpdateSecret(ctx context.Context, sec model.Secret) error {
	existing, err := s.GetSecretByKey(ctx, sec.Key)
	if err != nil {
		return err
	}
	if existing.Immutable {
		return errors.Conflict("secret " + sec.Key + " is immutable")
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE secrets SET data = $2, metadata = $3, updated_at = $4 WHERE key = $1
	`, sec.Key, []byte(sec.Data), nullableJSON(rawOrNil(sec.Metadata)), sec.UpdatedAt)
	return err
}

// DeleteSecret removes a Secret row.
func (s *Store) DeleteSecret(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE key = $1`, key)
	return err
}
