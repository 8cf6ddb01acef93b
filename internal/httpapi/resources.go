package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
	"github.com/nanocl-project/nanocld/internal/resourcekind"
)

func (a *API) listResources(w http.ResponseWriter, r *http.Request) {
	out, err := a.store.ListResources(r.Context(), filter.GenericFilter{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type resourceCreatePayload struct {
	Key  string          `json:"Key"`
	Kind string          `json:"Kind"`
	Data json.RawMessage `json:"Data"`
}

// validateAgainstKind loads kind's registered schema spec and checks data
// against it. A resource kind with no schema spec accepts any shape.
func (a *API) validateAgainstKind(r *http.Request, kind string, data json.RawMessage) error {
	rk, err := a.store.GetResourceKind(r.Context(), kind)
	if err != nil {
		return err
	}
	schemaSpec, err := a.specs.GetByKey(r.Context(), rk.SpecKey)
	if err != nil {
		return err
	}
	return resourcekind.Validate(schemaSpec.Data, data)
}

func (a *API) createResource(w http.ResponseWriter, r *http.Request) {
	var payload resourceCreatePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := a.validateAgainstKind(r, payload.Kind, payload.Data); err != nil {
		writeError(w, err)
		return
	}

	specKey, err := a.specs.Mint(r.Context(), "Resource", payload.Key, "1", payload.Data, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := a.store.CreateResource(r.Context(), model.Resource{
		Key: payload.Key, Kind: payload.Kind, SpecKey: specKey, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) getResource(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	res, err := a.store.GetResourceByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) putResource(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	res, err := a.store.GetResourceByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload struct {
		Data json.RawMessage `json:"Data"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := a.validateAgainstKind(r, res.Kind, payload.Data); err != nil {
		writeError(w, err)
		return
	}

	latest, err := a.specs.Latest(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	specKey, err := a.specs.Mint(r.Context(), "Resource", key, nextVersion(latest.Version), payload.Data, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.UpdateResourceSpecKey(r.Context(), key, specKey); err != nil {
		writeError(w, err)
		return
	}
	a.bus.Publish(eventbus.Event{Action: eventbus.ActionPatched, Kind: eventbus.KindResource, Key: key})
	res.SpecKey = specKey
	writeJSON(w, http.StatusOK, res)
}

func (a *API) deleteResource(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := a.specs.DeleteByKindKey(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.DeleteResource(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	a.bus.Publish(eventbus.Event{Action: eventbus.ActionDeleted, Kind: eventbus.KindResource, Key: key})
	w.WriteHeader(http.StatusNoContent)
}
