package store

import (
	"context"
	"time"

	"github.com/nanocl-project/nanocld/internal/model"
)

// GetObjStatus reads the ObjPsStatus row for key.
func (s *Store) GetObjStatus(ctx context.Context, key string) (model.ObjPsStatus, error) {
	var st model.ObjPsStatus
	err := s.db.GetContext(ctx, &st, `SELECT * FROM obj_ps_statuses WHERE key = $1`, key)
	if err != nil {
		return model.ObjPsStatus{}, translateNotFound(err, "ObjPsStatus", key)
	}
	return st, nil
}

// CreateObjStatus inserts the initial status row for a freshly created
// object, defaulting every field to Created.
func (s *Store) CreateObjStatus(ctx context.Context, key string) (model.ObjPsStatus, error) {
	st := model.ObjPsStatus{
		Key:        key,
		Wanted:     model.StatusCreated,
		PrevWanted: model.StatusCreated,
		Actual:     model.StatusCreated,
		PrevActual: model.StatusCreated,
		UpdatedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO obj_ps_statuses (key, wanted, prev_wanted, actual, prev_actual, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, st.Key, st.Wanted, st.PrevWanted, st.Actual, st.PrevActual, st.UpdatedAt)
	if err != nil {
		return model.ObjPsStatus{}, err
	}
	return st, nil
}

// ObjStatusUpdate names the subset of fields a caller wants to overwrite.
// Nil fields are left untouched.
type ObjStatusUpdate struct {
	Wanted     *model.Status
	PrevWanted *model.Status
	Actual     *model.Status
	PrevActual *model.Status
}

// SetObjStatus atomically applies update to the row for key. Each call that
// changes Wanted or Actual is expected to have already copied the old value
// into PrevWanted/PrevActual — this function performs no such derivation
// itself, it is a pure field-level write keyed by the caller's intent.
func (s *Store) SetObjStatus(ctx context.Context, key string, update ObjStatusUpdate) error {
	current, err := s.GetObjStatus(ctx, key)
	if err != nil {
		return err
	}
	if update.Wanted != nil {
		current.Wanted = *update.Wanted
	}
	if update.PrevWanted != nil {
		current.PrevWanted = *update.PrevWanted
	}
	if update.Actual != nil {
		current.Actual = *update.Actual
	}
	if update.PrevActual != nil {
		current.PrevActual = *update.PrevActual
	}
	current.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE obj_ps_statuses
		SET wanted = $2, prev_wanted = $3, actual = $4, prev_actual = $5, updated_at = $6
		WHERE key = $1
	`, key, current.Wanted, current.PrevWanted, current.Actual, current.PrevActual, current.UpdatedAt)
	return err
}

// DeleteObjStatus removes the status row for key, called as the last step
// of object deletion.
func (s *Store) DeleteObjStatus(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM obj_ps_statuses WHERE key = $1`, key)
	return err
}
