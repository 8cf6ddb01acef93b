package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
	"github.com/nanocl-project/nanocld/internal/process"
	"github.com/nanocl-project/nanocld/internal/runtime"
)

func (a *API) listCargoes(w http.ResponseWriter, r *http.Request) {
	ns := r.URL.Query().Get("namespace")
	f := filter.GenericFilter{}
	if ns != "" {
		f.Where = map[string]filter.Clause{"namespace_name": {Op: filter.OpEq, Value: ns}}
	}
	out, err := a.store.ListCargoes(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type cargoCreatePayload struct {
	Name        string               `json:"Name" validate:"required,hostname_rfc1123"`
	Namespace   string               `json:"Namespace"`
	Image       string               `json:"Image" validate:"required"`
	Cmd         []string             `json:"Cmd"`
	Env         []string             `json:"Env"`
	Replication *process.Replication `json:"Replication"`
}

func (a *API) createCargo(w http.ResponseWriter, r *http.Request) {
	var payload cargoCreatePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := validatePayload(payload); err != nil {
		writeError(w, err)
		return
	}
	namespace := payload.Namespace
	if namespace == "" {
		namespace = "global"
	}
	kindKey := payload.Name + "." + namespace

	data := process.CargoSpecData{Image: &payload.Image, Cmd: payload.Cmd, Env: payload.Env, Replication: payload.Replication}
	specKey, err := a.specs.Mint(r.Context(), "Cargo", kindKey, "1", data, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	cargo, err := a.store.CreateCargo(r.Context(), model.Cargo{
		Key: kindKey, Name: payload.Name, SpecKey: specKey, NamespaceName: namespace, CreatedAt: now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	// No Process rows are created here: containers are materialized on the
	// first POST /cargoes/{key}/start (or /processes/cargo/{key}/start), not
	// at create time.
	if _, err := a.status.Create(r.Context(), kindKey); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, cargo)
}

// cargoReplicaConfig loads a cargo's latest Spec and returns the replica
// target and container-config builder StartByKindKey needs to materialize
// containers on first start.
func (a *API) cargoReplicaConfig(ctx context.Context, cargo model.Cargo) (int, func(int) runtime.ContainerConfig, error) {
	latest, err := a.specs.Latest(ctx, cargo.Key)
	if err != nil {
		return 0, nil, err
	}
	var data process.CargoSpecData
	if err := json.Unmarshal(latest.Data, &data); err != nil {
		return 0, nil, errors.Internal("decode cargo spec", err)
	}

	target := 1
	if data.Replication != nil {
		target = data.Replication.TargetCount(a.node)
	}
	image := ""
	if data.Image != nil {
		image = *data.Image
	}
	buildCfg := func(replicaIndex int) runtime.ContainerConfig {
		return process.BuildCargoContainerConfig(cargo.Key, cargo.NamespaceName, cargo.Name, replicaIndex, process.CargoContainerSpec{
			Image: image, Cmd: data.Cmd, Env: data.Env, Mounts: data.Mounts,
		})
	}
	return target, buildCfg, nil
}

// startCargoByKey loads the cargo and its latest Spec, then starts it,
// materializing containers on the object's first start. Shared by the
// /cargoes/{key}/start handler and the /processes/cargo/{key}/start route.
func (a *API) startCargoByKey(ctx context.Context, key string) error {
	cargo, err := a.store.GetCargoByKey(ctx, key)
	if err != nil {
		return err
	}
	target, buildCfg, err := a.cargoReplicaConfig(ctx, cargo)
	if err != nil {
		return err
	}
	return a.recon.StartByKindKey(ctx, key, eventbus.KindCargo, cargo.NamespaceName, a.node.Name, target, buildCfg)
}

func (a *API) getCargo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	cargo, err := a.store.GetCargoByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cargo)
}

// cargoInspect reports a cargo's stored record alongside the live runtime
// state of each of its Process rows, the same pairing processInspect gives
// for the cross-kind /processes/{name}/inspect route.
func (a *API) cargoInspect(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	cargo, err := a.store.GetCargoByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	procs, err := a.store.ListProcessesByKindKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	states := make([]processInspect, 0, len(procs))
	for _, p := range procs {
		state, err := a.recon.InspectProcess(r.Context(), p.Key)
		if err != nil && !runtime.IsNotFound(err) {
			writeError(w, errors.Runtime("inspect", err))
			return
		}
		states = append(states, processInspect{Key: p.Key, Name: p.Name, Kind: p.Kind, KindKey: p.KindKey, NodeKey: p.NodeKey, State: state})
	}
	writeJSON(w, http.StatusOK, struct {
		model.Cargo
		Processes []processInspect `json:"Processes"`
	}{Cargo: cargo, Processes: states})
}

func (a *API) patchCargo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	cargo, err := a.store.GetCargoByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload struct {
		Image       *string              `json:"Image"`
		Cmd         []string             `json:"Cmd"`
		Env         []string             `json:"Env"`
		Replication *process.Replication `json:"Replication"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	patch := process.CargoPatch{Image: payload.Image, Cmd: payload.Cmd, Env: payload.Env, Replication: payload.Replication}
	if err := a.recon.PatchCargo(r.Context(), key, cargo.NamespaceName, patch, a.node); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cargo)
}

func (a *API) deleteCargo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	processes, err := a.store.ListProcessesByKindKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, p := range processes {
		if err := a.recon.DeleteProcessByPK(r.Context(), p.Key); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := a.status.Delete(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	if err := a.specs.DeleteByKindKey(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.DeleteCargo(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	a.bus.Publish(eventbus.Event{Action: eventbus.ActionDeleted, Kind: eventbus.KindCargo, Key: key})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) startCargo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := a.startCargoByKey(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) stopCargo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := a.recon.StopByKindKey(r.Context(), key, eventbus.KindCargo); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) restartCargo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := a.recon.RestartByKindKey(r.Context(), key, eventbus.KindCargo); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) killCargo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var payload struct {
		Signal string `json:"Signal"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := a.recon.KillByKindKey(r.Context(), key, runtime.KillOptions{Signal: payload.Signal}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) listCargoHistories(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rows, err := a.specs.ReadByKindKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// resetCargoHistory restores a cargo to an earlier Spec revision verbatim:
// it loads the named history's full container-bearing payload and replaces
// the current spec with it, rather than merging it onto whatever is live.
func (a *API) resetCargoHistory(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	historyID := chi.URLParam(r, "id")

	cargo, err := a.store.GetCargoByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := a.specs.GetByKey(r.Context(), historyID)
	if err != nil {
		writeError(w, err)
		return
	}
	var data process.CargoSpecData
	if err := json.Unmarshal(history.Data, &data); err != nil {
		writeError(w, errors.Internal("decode history spec", err))
		return
	}
	if err := a.recon.ResetCargoSpec(r.Context(), key, cargo.NamespaceName, data, a.node); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cargo)
}
