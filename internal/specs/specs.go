// Package specs implements the Spec Registry: minting and looking up
// immutable, append-only configuration revisions.
package specs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/store"
)

// Registry mints and resolves Spec revisions.
type Registry struct {
	store *store.Store
}

func New(s *store.Store) *Registry {
	return &Registry{store: s}
}

// Mint produces a new Spec revision for (kindName, kindKey, version) holding
// partial as its JSON payload, and persists it. Specs are never edited once
// minted.
func (r *Registry) Mint(ctx context.Context, kindName, kindKey, version string, partial any, metadata any) (string, error) {
	data, err := json.Marshal(partial)
	if err != nil {
		return "", err
	}
	var metaBytes []byte
	if metadata != nil {
		metaBytes, err = json.Marshal(metadata)
		if err != nil {
			return "", err
		}
	}

	key := uuid.NewString()
	if err := r.store.CreateSpec(ctx, key, kindName, kindKey, version, data, metaBytes); err != nil {
		return "", err
	}
	return key, nil
}

// GetVersion returns the unique revision for (kindKey, version), or a
// NotFound error.
func (r *Registry) GetVersion(ctx context.Context, kindKey, version string) (store.SpecRow, error) {
	return r.store.GetSpecVersion(ctx, kindKey, version)
}

// GetByKey returns a single revision by its primary key.
func (r *Registry) GetByKey(ctx context.Context, key string) (store.SpecRow, error) {
	return r.store.GetSpecByKey(ctx, key)
}

// ReadByKindKey returns the full revision history for kindKey. The caller
// orders as needed (e.g. latest-first for display, earliest-first for
// auditing).
func (r *Registry) ReadByKindKey(ctx context.Context, kindKey string) ([]store.SpecRow, error) {
	return r.store.ListSpecsByKindKey(ctx, kindKey)
}

// Latest returns the most recently created revision for kindKey.
func (r *Registry) Latest(ctx context.Context, kindKey string) (store.SpecRow, error) {
	rows, err := r.store.ListSpecsByKindKey(ctx, kindKey)
	if err != nil {
		return store.SpecRow{}, err
	}
	if len(rows) == 0 {
		return store.SpecRow{}, errors.NotFound("Spec", kindKey)
	}
	return rows[len(rows)-1], nil
}

// DeleteByKindKey removes every revision for kindKey. Used only as part of
// whole-object deletion.
func (r *Registry) DeleteByKindKey(ctx context.Context, kindKey string) error {
	return r.store.DeleteSpecsByKindKey(ctx, kindKey)
}
