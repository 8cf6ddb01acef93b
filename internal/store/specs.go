package store

import (
	"context"
)

// SpecRow mirrors the specs table, used internally where model.Spec's
// pointer-to-RawMessage metadata needs explicit NULL handling.
type SpecRow struct {
	Key       string  `db:"key"`
	CreatedAt string  `db:"created_at"`
	KindName  string  `db:"kind_name"`
	KindKey   string  `db:"kind_key"`
	Version   string  `db:"version"`
	Data      []byte  `db:"data"`
	Metadata  []byte  `db:"metadata"`
}

// CreateSpec inserts a new, immutable Spec revision.
func (s *Store) CreateSpec(ctx context.Context, key, kindName, kindKey, version string, data, metadata []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO specs (key, kind_name, kind_key, version, data, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, key, kindName, kindKey, version, data, nullableJSON(metadata))
	return err
}

// GetSpecVersion returns the unique Spec revision for (kindKey, version).
func (s *Store) GetSpecVersion(ctx context.Context, kindKey, version string) (SpecRow, error) {
	var row SpecRow
	err := s.db.GetContext(ctx, &row, `
		SELECT key, created_at, kind_name, kind_key, version, data, metadata
		FROM specs WHERE kind_key = $1 AND version = $2
	`, kindKey, version)
	if err != nil {
		return SpecRow{}, translateNotFound(err, "Spec", kindKey+"@"+version)
	}
	return row, nil
}

// GetSpecByKey returns a single Spec revision by its primary key.
func (s *Store) GetSpecByKey(ctx context.Context, key string) (SpecRow, error) {
	var row SpecRow
	err := s.db.GetContext(ctx, &row, `
		SELECT key, created_at, kind_name, kind_key, version, data, metadata
		FROM specs WHERE key = $1
	`, key)
	if err != nil {
		return SpecRow{}, translateNotFound(err, "Spec", key)
	}
	return row, nil
}

// ListSpecsByKindKey returns the full revision history for kindKey, ordered
// by creation time. Callers impose any further ordering they need.
func (s *Store) ListSpecsByKindKey(ctx context.Context, kindKey string) ([]SpecRow, error) {
	var rows []SpecRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT key, created_at, kind_name, kind_key, version, data, metadata
		FROM specs WHERE kind_key = $1 ORDER BY created_at ASC
	`, kindKey)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteSpecsByKindKey removes every revision for kindKey. Used only during
// object deletion, never on its own.
func (s *Store) DeleteSpecsByKindKey(ctx context.Context, kindKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM specs WHERE kind_key = $1`, kindKey)
	return err
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
