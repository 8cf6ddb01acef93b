package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/runtime"
)

// listProcesses lists every Process row across every kind, regardless of
// namespace — the cross-kind inventory view GET /cargoes and GET /vms don't
// provide on their own.
func (a *API) listProcesses(w http.ResponseWriter, r *http.Request) {
	out, err := a.store.ListProcesses(r.Context(), filter.GenericFilter{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// processInspect pairs a Process row with the runtime's live view of its
// container. Runtime-404 (container gone but the row hasn't been reaped yet)
// is reported as a zero-value State rather than failing the whole response.
type processInspect struct {
	Key     string                  `json:"Key"`
	Name    string                  `json:"Name"`
	Kind    string                  `json:"Kind"`
	KindKey string                  `json:"KindKey"`
	NodeKey string                  `json:"NodeKey"`
	State   runtime.ContainerState `json:"State"`
}

func (a *API) inspectProcesses(w http.ResponseWriter, r *http.Request) {
	kindKey := chi.URLParam(r, "name")
	procs, err := a.store.ListProcessesByKindKey(r.Context(), kindKey)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]processInspect, 0, len(procs))
	for _, p := range procs {
		state, err := a.recon.InspectProcess(r.Context(), p.Key)
		if err != nil && !runtime.IsNotFound(err) {
			writeError(w, errors.Runtime("inspect", err))
			return
		}
		out = append(out, processInspect{Key: p.Key, Name: p.Name, Kind: p.Kind, KindKey: p.KindKey, NodeKey: p.NodeKey, State: state})
	}
	writeJSON(w, http.StatusOK, out)
}

// eventbusKindOf maps a /processes/{kind}/... path segment onto the Kind tag
// lifecycle events and the reconciler's generic verbs are keyed by.
func eventbusKindOf(kind string) (eventbus.Kind, error) {
	switch kind {
	case "cargo":
		return eventbus.KindCargo, nil
	case "vm":
		return eventbus.KindVm, nil
	case "job":
		return eventbus.KindJob, nil
	default:
		return "", errors.Validation("unknown process kind: " + kind)
	}
}

// processStart dispatches to the same deferred-creation start path as
// POST /cargoes/{key}/start and POST /vms/{key}/start: {name} is the
// object's kind_key, not its bare name.
func (a *API) processStart(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	key := chi.URLParam(r, "name")

	var err error
	switch kind {
	case "cargo":
		err = a.startCargoByKey(r.Context(), key)
	case "vm":
		err = a.startVmByKey(r.Context(), key)
	case "job":
		err = a.recon.StartByKindKey(r.Context(), key, eventbus.KindJob, "global", a.node.Name, 0, nil)
	default:
		err = errors.Validation("unknown process kind: " + kind)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) processStop(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "name")
	ek, err := eventbusKindOf(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.recon.StopByKindKey(r.Context(), key, ek); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) processRestart(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "name")
	ek, err := eventbusKindOf(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.recon.RestartByKindKey(r.Context(), key, ek); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) processKill(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "name")
	if _, err := eventbusKindOf(chi.URLParam(r, "kind")); err != nil {
		writeError(w, err)
		return
	}
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
