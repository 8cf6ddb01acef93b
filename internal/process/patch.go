package process

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/runtime"
)

// CargoSpecData is a Cargo Spec's JSON payload. Image/Cmd/Env/Mounts are
// container-bearing: changing any of them forces the reconciler to recreate
// every replica. Replication is not container-bearing on its own (the
// reconciler just adjusts replica count) but is merged the same way.
type CargoSpecData struct {
	Image       *string             `json:"Image,omitempty"`
	Cmd         []string            `json:"Cmd,omitempty"`
	Env         []string            `json:"Env,omitempty"`
	Mounts      []runtime.Mount     `json:"Mounts,omitempty"`
	Replication *Replication        `json:"Replication,omitempty"`
}

// CargoPatch carries only the fields a caller wants to change; nil/empty
// fields mean "keep the current value."
type CargoPatch struct {
	Image       *string
	Cmd         []string
	Env         []string
	Mounts      []runtime.Mount
	Replication *Replication
}

// mergeCargoSpec applies patch on top of current, returning the merged
// payload and whether any container-bearing field actually changed.
func mergeCargoSpec(current CargoSpecData, patch CargoPatch) (CargoSpecData, bool) {
	merged := current
	changed := false

	if patch.Image != nil && (merged.Image == nil || *merged.Image != *patch.Image) {
		merged.Image = patch.Image
		changed = true
	}
	if patch.Cmd != nil && !stringSliceEqual(merged.Cmd, patch.Cmd) {
		merged.Cmd = patch.Cmd
		changed = true
	}
	if patch.Env != nil && !stringSliceEqual(merged.Env, patch.Env) {
		merged.Env = patch.Env
		changed = true
	}
	if patch.Mounts != nil && !mountsEqual(merged.Mounts, patch.Mounts) {
		merged.Mounts = patch.Mounts
		changed = true
	}
	if patch.Replication != nil {
		merged.Replication = patch.Replication
	}

	return merged, changed
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mountsEqual(a, b []runtime.Mount) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PatchCargo merges patch onto the cargo's latest Spec, mints a new
// revision, and only recreates containers when a container-bearing field
// changed. If nothing container-bearing changed, it mints the revision and
// emits Patched without touching the runtime.
func (r *Reconciler) PatchCargo(ctx context.Context, kindKey, namespace string, patch CargoPatch, node NodeIdentity) error {
	unlock := r.locks.Lock(kindKey)
	defer unlock()

	latest, err := r.specs.Latest(ctx, kindKey)
	if err != nil {
		return err
	}
	var current CargoSpecData
	if err := json.Unmarshal(latest.Data, &current); err != nil {
		return errors.Internal("decode cargo spec", err)
	}

	merged, containerChanged := mergeCargoSpec(current, patch)

	if _, err := r.specs.Mint(ctx, "Cargo", kindKey, nextVersion(latest.Version), merged, nil); err != nil {
		return err
	}

	if !containerChanged {
		r.emit(eventbus.ActionPatched, eventbus.KindCargo, kindKey)
		return nil
	}

	target := 1
	if merged.Replication != nil {
		target = merged.Replication.TargetCount(node)
	}

	image := ""
	if merged.Image != nil {
		image = *merged.Image
	}
	buildCfg := func(replicaIndex int) runtime.ContainerConfig {
		return BuildCargoContainerConfig(kindKey, namespace, kindKey, replicaIndex, CargoContainerSpec{
			Image: image, Cmd: merged.Cmd, Env: merged.Env, Mounts: merged.Mounts,
		})
	}

	existing, err := r.store.ListProcessesByKindKey(ctx, kindKey)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if err := r.DeleteProcessByPK(ctx, p.Key); err != nil {
			return err
		}
	}
	if err := r.ReconcileReplicaCount(ctx, kindKey, "Cargo", namespace, node.Name, target, buildCfg); err != nil {
		return err
	}

	r.emit(eventbus.ActionPatched, eventbus.KindCargo, kindKey)
	return nil
}

// ResetCargoSpec mints historical as a new revision verbatim (no merge with
// the current spec) and unconditionally recreates every replica from it,
// since a history reset restores the exact historical container shape
// rather than diffing against what's running now.
func (r *Reconciler) ResetCargoSpec(ctx context.Context, kindKey, namespace string, historical CargoSpecData, node NodeIdentity) error {
	unlock := r.locks.Lock(kindKey)
	defer unlock()

	latest, err := r.specs.Latest(ctx, kindKey)
	if err != nil {
		return err
	}
	if _, err := r.specs.Mint(ctx, "Cargo", kindKey, nextVersion(latest.Version), historical, nil); err != nil {
		return err
	}

	target := 1
	if historical.Replication != nil {
		target = historical.Replication.TargetCount(node)
	}

	image := ""
	if historical.Image != nil {
		image = *historical.Image
	}
	buildCfg := func(replicaIndex int) runtime.ContainerConfig {
		return BuildCargoContainerConfig(kindKey, namespace, kindKey, replicaIndex, CargoContainerSpec{
			Image: image, Cmd: historical.Cmd, Env: historical.Env, Mounts: historical.Mounts,
		})
	}

	existing, err := r.store.ListProcessesByKindKey(ctx, kindKey)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if err := r.DeleteProcessByPK(ctx, p.Key); err != nil {
			return err
		}
	}
	if err := r.ReconcileReplicaCount(ctx, kindKey, "Cargo", namespace, node.Name, target, buildCfg); err != nil {
		return err
	}

	r.emit(eventbus.ActionPatched, eventbus.KindCargo, kindKey)
	return nil
}

// PutVm unconditionally stops, removes, and recreates the VM's single
// container from hc, regardless of whether anything actually changed. This
// matches the VM update path's all-or-nothing replace semantics, unlike
// Cargo's selective Patch.
func (r *Reconciler) PutVm(ctx context.Context, kindKey, namespace string, hc VmHostConfig) error {
	unlock := r.locks.Lock(kindKey)
	defer unlock()

	existing, err := r.store.ListProcessesByKindKey(ctx, kindKey)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if err := r.DeleteProcessByPK(ctx, p.Key); err != nil {
			return err
		}
	}

	cfg := BuildVmContainerConfig(kindKey, namespace, hc)
	if _, err := r.CreateReplicas(ctx, kindKey, "Vm", namespace, "", []runtime.ContainerConfig{cfg}); err != nil {
		return err
	}

	r.emit(eventbus.ActionPatched, eventbus.KindVm, kindKey)
	return nil
}

// nextVersion produces a simple monotonically increasing version string.
// The registry itself treats version as an opaque string key, so any scheme
// that never repeats for the same kind_key is valid; a non-numeric current
// version (e.g. an empty string) just restarts the count at "1".
func nextVersion(current string) string {
	n, err := strconv.Atoi(current)
	if err != nil {
		n = 0
	}
	return strconv.Itoa(n + 1)
}
