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

func (a *API) listVms(w http.ResponseWriter, r *http.Request) {
	ns := r.URL.Query().Get("namespace")
	f := filter.GenericFilter{}
	if ns != "" {
		f.Where = map[string]filter.Clause{"namespace_name": {Op: filter.OpEq, Value: ns}}
	}
	out, err := a.store.ListVms(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type vmHostConfigPayload struct {
	KVM          bool   `json:"KVM"`
	CPU          int64  `json:"CPU"`
	MemoryMiB    int64  `json:"MemoryMiB"`
	ImagePath    string `json:"ImagePath"`
	User         string `json:"User"`
	Password     string `json:"Password"`
	SSHKey       string `json:"SSHKey"`
	DeleteSSHKey bool   `json:"DeleteSSHKey"`
}

func (p vmHostConfigPayload) toHostConfig() process.VmHostConfig {
	return process.VmHostConfig{
		KVM: p.KVM, CPU: p.CPU, MemoryMiB: p.MemoryMiB, ImagePath: p.ImagePath,
		User: p.User, Password: p.Password, SSHKey: p.SSHKey, DeleteSSHKey: p.DeleteSSHKey,
	}
}

type vmCreatePayload struct {
	Name       string              `json:"Name" validate:"required,hostname_rfc1123"`
	Namespace  string              `json:"Namespace"`
	HostConfig vmHostConfigPayload `json:"HostConfig"`
}

func (a *API) createVm(w http.ResponseWriter, r *http.Request) {
	var payload vmCreatePayload
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
	kindKey := payload.Name + "." + namespace + ".v"
	hc := payload.HostConfig.toHostConfig()

	specKey, err := a.specs.Mint(r.Context(), "Vm", kindKey, "1", hc, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	vm, err := a.store.CreateVm(r.Context(), model.Vm{
		Key: kindKey, Name: payload.Name, SpecKey: specKey, NamespaceName: namespace, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	// No Process row yet: the QEMU-hosting container is created on the first
	// POST /vms/{key}/start, mirroring Cargo's create/start split.
	if _, err := a.status.Create(r.Context(), kindKey); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, vm)
}

// startVmByKey loads the VM and its latest host-config Spec, then starts it,
// materializing its single container on first start.
func (a *API) startVmByKey(ctx context.Context, key string) error {
	vm, err := a.store.GetVmByKey(ctx, key)
	if err != nil {
		return err
	}
	latest, err := a.specs.Latest(ctx, key)
	if err != nil {
		return err
	}
	var hc process.VmHostConfig
	if err := json.Unmarshal(latest.Data, &hc); err != nil {
		return errors.Internal("decode vm spec", err)
	}
	buildCfg := func(int) runtime.ContainerConfig {
		return process.BuildVmContainerConfig(key, vm.NamespaceName, hc)
	}
	return a.recon.StartByKindKey(ctx, key, eventbus.KindVm, vm.NamespaceName, "", 1, buildCfg)
}

func (a *API) getVm(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	vm, err := a.store.GetVmByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

// putVm replaces a VM's host configuration unconditionally: stop, remove,
// recreate, regardless of which fields actually changed. VMs have no
// selective-recreate path the way Cargo Patch does.
func (a *API) putVm(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	vm, err := a.store.GetVmByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload vmHostConfigPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	hc := payload.toHostConfig()

	specKey, err := a.specs.Mint(r.Context(), "Vm", key, "1", hc, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.UpdateVmSpecKey(r.Context(), key, specKey); err != nil {
		writeError(w, err)
		return
	}
	if err := a.recon.PutVm(r.Context(), key, vm.NamespaceName, hc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

func (a *API) deleteVm(w http.ResponseWriter, r *http.Request) {
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
	if err := a.store.DeleteVm(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	a.bus.Publish(eventbus.Event{Action: eventbus.ActionDeleted, Kind: eventbus.KindVm, Key: key})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) startVm(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := a.startVmByKey(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) stopVm(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := a.recon.StopByKindKey(r.Context(), key, eventbus.KindVm); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
