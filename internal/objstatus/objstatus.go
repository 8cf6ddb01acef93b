// Package objstatus implements the Object Status engine: the canonical
// wanted/actual lifecycle transitions every reconcile operation drives.
package objstatus

import (
	"context"

	"github.com/nanocl-project/nanocld/internal/model"
	"github.com/nanocl-project/nanocld/internal/store"
)

// Engine mutates ObjPsStatus rows, always preserving the previous value in
// prev_wanted/prev_actual alongside the new one.
type Engine struct {
	store *store.Store
}

func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Create initializes a fresh object's status, all fields set to Created.
func (e *Engine) Create(ctx context.Context, key string) (model.ObjPsStatus, error) {
	return e.store.CreateObjStatus(ctx, key)
}

// Get reads the current status for key.
func (e *Engine) Get(ctx context.Context, key string) (model.ObjPsStatus, error) {
	return e.store.GetObjStatus(ctx, key)
}

// Delete removes the status row for key, the final step of object deletion.
func (e *Engine) Delete(ctx context.Context, key string) error {
	return e.store.DeleteObjStatus(ctx, key)
}

// BeginStart transitions toward Running: Wanted=Running, Actual=Starting,
// preserving both old values in the prev_* fields. If the object is already
// Running this is a no-op and started reports false so callers can short-circuit
// without emitting events.
func (e *Engine) BeginStart(ctx context.Context, key string) (started bool, err error) {
	current, err := e.store.GetObjStatus(ctx, key)
	if err != nil {
		return false, err
	}
	if current.Actual == model.StatusRunning {
		return false, nil
	}

	wanted := model.StatusRunning
	actual := model.StatusStarting
	prevWanted := current.Wanted
	prevActual := current.Actual
	err = e.store.SetObjStatus(ctx, key, store.ObjStatusUpdate{
		Wanted: &wanted, Actual: &actual,
		PrevWanted: &prevWanted, PrevActual: &prevActual,
	})
	return err == nil, err
}

// MarkRunning records that the runtime reported the object's containers as
// up, completing a start transition.
func (e *Engine) MarkRunning(ctx context.Context, key string) error {
	current, err := e.store.GetObjStatus(ctx, key)
	if err != nil {
		return err
	}
	actual := model.StatusRunning
	prevActual := current.Actual
	return e.store.SetObjStatus(ctx, key, store.ObjStatusUpdate{Actual: &actual, PrevActual: &prevActual})
}

// BeginStop transitions toward Stopped: Actual=Stopping. Idempotent — a stop
// on an already-Stopped object is a no-op (stopped reports false).
func (e *Engine) BeginStop(ctx context.Context, key string) (stopped bool, err error) {
	current, err := e.store.GetObjStatus(ctx, key)
	if err != nil {
		return false, err
	}
	if current.Actual == model.StatusStopped {
		return false, nil
	}
	actual := model.StatusStopping
	prevActual := current.Actual
	err = e.store.SetObjStatus(ctx, key, store.ObjStatusUpdate{Actual: &actual, PrevActual: &prevActual})
	return err == nil, err
}

// MarkStopped completes a stop transition.
func (e *Engine) MarkStopped(ctx context.Context, key string) error {
	current, err := e.store.GetObjStatus(ctx, key)
	if err != nil {
		return err
	}
	actual := model.StatusStopped
	prevActual := current.Actual
	return e.store.SetObjStatus(ctx, key, store.ObjStatusUpdate{Actual: &actual, PrevActual: &prevActual})
}

// BeginRestart transitions Stopping -> (caller later calls BeginStart once
// the stop completes) -> Running. prev fields preserve the state before the
// restart began so a failed restart can be reasoned about without consulting
// Spec history.
func (e *Engine) BeginRestart(ctx context.Context, key string) error {
	current, err := e.store.GetObjStatus(ctx, key)
	if err != nil {
		return err
	}
	actual := model.StatusStopping
	prevActual := current.Actual
	prevWanted := current.Wanted
	return e.store.SetObjStatus(ctx, key, store.ObjStatusUpdate{
		Actual: &actual, PrevActual: &prevActual, PrevWanted: &prevWanted,
	})
}

// MarkFailed records a terminal failure, e.g. from a kill or a runtime error
// during start.
func (e *Engine) MarkFailed(ctx context.Context, key string) error {
	current, err := e.store.GetObjStatus(ctx, key)
	if err != nil {
		return err
	}
	actual := model.StatusFailed
	prevActual := current.Actual
	return e.store.SetObjStatus(ctx, key, store.ObjStatusUpdate{Actual: &actual, PrevActual: &prevActual})
}
