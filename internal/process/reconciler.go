// Package process implements the Process Reconciler: the state machine that
// turns a Spec into running containers, and drives start/stop/restart/kill/
// delete against the container runtime, serialized per kind_key.
package process

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/logging"
	"github.com/nanocl-project/nanocld/internal/model"
	"github.com/nanocl-project/nanocld/internal/objstatus"
	"github.com/nanocl-project/nanocld/internal/runtime"
	"github.com/nanocl-project/nanocld/internal/specs"
	"github.com/nanocl-project/nanocld/internal/store"
)

// Reconciler owns the per-kind_key advisory lock and drives every
// lifecycle transition against the Object Status engine, the Store, and the
// container runtime.
type Reconciler struct {
	store   *store.Store
	status  *objstatus.Engine
	specs   *specs.Registry
	runtime runtime.Client
	bus     *eventbus.Bus
	log     *logging.Logger
	locks   *keyedMutex
}

func New(s *store.Store, status *objstatus.Engine, sp *specs.Registry, rt runtime.Client, bus *eventbus.Bus, log *logging.Logger) *Reconciler {
	return &Reconciler{store: s, status: status, specs: sp, runtime: rt, bus: bus, log: log, locks: newKeyedMutex()}
}

// emit publishes a lifecycle event for kindKey, tagging it with kind.
func (r *Reconciler) emit(action eventbus.Action, kind eventbus.Kind, kindKey string) {
	r.bus.Publish(eventbus.Event{Action: action, Kind: kind, Key: kindKey})
}

// StartByKindKey starts the object identified by kindKey. If the object is
// already Running this is a no-op. Two concurrent starts for the same key
// observe the first's Starting transition and the second short-circuits via
// the per-key lock plus the status engine's own idempotence check.
//
// Container materialization is deferred to this call rather than to create:
// a Cargo/VM's first start has no Process rows yet, so when buildCfg is
// non-nil this reconciles the replica count up to target before starting.
// A nil buildCfg (e.g. a Job, whose containers are created up front by
// CreateReplicas) skips straight to starting whatever Process rows already
// exist for kindKey.
func (r *Reconciler) StartByKindKey(ctx context.Context, kindKey string, kind eventbus.Kind, namespace, nodeName string, target int, buildCfg func(replicaIndex int) runtime.ContainerConfig) error {
	unlock := r.locks.Lock(kindKey)
	defer unlock()

	started, err := r.status.BeginStart(ctx, kindKey)
	if err != nil {
		return err
	}
	if !started {
		return nil
	}

	if buildCfg != nil {
		if err := r.ReconcileReplicaCount(ctx, kindKey, string(kind), namespace, nodeName, target, buildCfg); err != nil {
			return err
		}
	}

	processes, err := r.store.ListProcessesByKindKey(ctx, kindKey)
	if err != nil {
		return err
	}
	for _, p := range processes {
		if err := r.runtime.Start(ctx, p.Key); err != nil && !isNotFound(err) {
			return errors.Runtime("start", err)
		}
	}

	r.emit(eventbus.ActionStarting, kind, kindKey)
	return nil
}

// StopByKindKey stops every Process row for kindKey. It mirrors the
// original reconciler's early-return behavior: the moment any process is
// observed not-running, the loop returns without issuing stops to the
// remaining processes and without emitting Stopping. This looks surprising
// but matches the upstream lifecycle contract exactly, so callers relying on
// "stop is a strict no-op once anything is already stopped" keep working.
func (r *Reconciler) StopByKindKey(ctx context.Context, kindKey string, kind eventbus.Kind) error {
	unlock := r.locks.Lock(kindKey)
	defer unlock()

	processes, err := r.store.ListProcessesByKindKey(ctx, kindKey)
	if err != nil {
		return err
	}

	for _, p := range processes {
		state, err := r.runtime.Inspect(ctx, p.Key)
		if err != nil && !isNotFound(err) {
			return errors.Runtime("inspect", err)
		}
		if err == nil && !state.Running {
			return nil
		}
		if err := r.runtime.Stop(ctx, p.Key, 10*time.Second); err != nil && !isNotFound(err) {
			return errors.Runtime("stop", err)
		}
	}

	r.emit(eventbus.ActionStopping, kind, kindKey)
	return nil
}

// RestartByKindKey issues a restart to every Process row for kindKey.
func (r *Reconciler) RestartByKindKey(ctx context.Context, kindKey string, kind eventbus.Kind) error {
	unlock := r.locks.Lock(kindKey)
	defer unlock()

	if err := r.status.BeginRestart(ctx, kindKey); err != nil {
		return err
	}

	processes, err := r.store.ListProcessesByKindKey(ctx, kindKey)
	if err != nil {
		return err
	}
	for _, p := range processes {
		if err := r.runtime.Restart(ctx, p.Key, 10*time.Second); err != nil && !isNotFound(err) {
			return errors.Runtime("restart", err)
		}
	}

	r.emit(eventbus.ActionRestart, kind, kindKey)
	return nil
}

// KillByKindKey forwards a kill signal to every Process row for kindKey. No
// event is emitted here; the caller observes the runtime's own events.
func (r *Reconciler) KillByKindKey(ctx context.Context, kindKey string, opts runtime.KillOptions) error {
	unlock := r.locks.Lock(kindKey)
	defer unlock()

	processes, err := r.store.ListProcessesByKindKey(ctx, kindKey)
	if err != nil {
		return err
	}
	for _, p := range processes {
		if err := r.runtime.Kill(ctx, p.Key, opts); err != nil && !isNotFound(err) {
			return errors.Runtime("kill", err)
		}
	}
	return nil
}

// StreamLogs forwards one container's log output to w, per opts.
func (r *Reconciler) StreamLogs(ctx context.Context, pk string, opts runtime.LogOptions, w io.Writer) error {
	return r.runtime.Logs(ctx, pk, opts, w)
}

// Exec runs one command inside a container and returns its exit code.
func (r *Reconciler) Exec(ctx context.Context, pk string, opts runtime.ExecOptions) (int, error) {
	return r.runtime.Exec(ctx, pk, opts)
}

// InspectProcess reports the runtime-observed state of one container. A
// runtime-404 is returned as-is so callers can distinguish "never created"
// from a genuine runtime error.
func (r *Reconciler) InspectProcess(ctx context.Context, pk string) (runtime.ContainerState, error) {
	return r.runtime.Inspect(ctx, pk)
}

// DeleteProcessByPK removes one container via the runtime, treating a
// runtime-404 as success, then unconditionally deletes the Process row.
func (r *Reconciler) DeleteProcessByPK(ctx context.Context, pk string) error {
	if err := r.runtime.Remove(ctx, pk); err != nil && !isNotFound(err) {
		return errors.Runtime("remove", err)
	}
	return r.store.DeleteProcessByKey(ctx, pk)
}

// CreateReplicas materializes containers for every config in cfgs, recording
// a Process row for each. It does not start them; callers invoke
// StartByKindKey separately once creation succeeds.
func (r *Reconciler) CreateReplicas(ctx context.Context, kindKey, kind, namespace, nodeName string, cfgs []runtime.ContainerConfig) ([]model.Process, error) {
	created := make([]model.Process, 0, len(cfgs))
	for _, cfg := range cfgs {
		id, err := r.runtime.Create(ctx, cfg)
		if err != nil {
			return created, errors.Runtime("create", err)
		}
		data, err := json.Marshal(cfg)
		if err != nil {
			return created, errors.Internal("marshal container config", err)
		}
		now := time.Now().UTC()
		p, err := r.store.CreateProcess(ctx, model.Process{
			Key: id, Name: cfg.Name, Kind: kind, Data: data,
			NodeKey: nodeName, KindKey: kindKey, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			return created, err
		}
		created = append(created, p)
	}
	return created, nil
}

// ReconcileReplicaCount creates missing replicas (using buildCfg for each
// new index) and removes surplus replicas oldest-first by created_at, so
// the current node ends up running exactly target containers for kindKey.
func (r *Reconciler) ReconcileReplicaCount(ctx context.Context, kindKey, kind, namespace, nodeName string, target int, buildCfg func(replicaIndex int) runtime.ContainerConfig) error {
	existing, err := r.store.ListProcessesByKindKey(ctx, kindKey)
	if err != nil {
		return err
	}

	// ListProcessesByKindKey already orders oldest-first by created_at.
	sort.SliceStable(existing, func(i, j int) bool { return existing[i].CreatedAt.Before(existing[j].CreatedAt) })

	switch {
	case len(existing) < target:
		missing := target - len(existing)
		cfgs := make([]runtime.ContainerConfig, 0, missing)
		for i := 0; i < missing; i++ {
			cfgs = append(cfgs, buildCfg(len(existing)+i))
		}
		_, err := r.CreateReplicas(ctx, kindKey, kind, namespace, nodeName, cfgs)
		return err
	case len(existing) > target:
		surplus := existing[:len(existing)-target]
		for _, p := range surplus {
			if err := r.DeleteProcessByPK(ctx, p.Key); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func isNotFound(err error) bool {
	return stderrors.Is(err, runtime.ErrNotFound)
}
