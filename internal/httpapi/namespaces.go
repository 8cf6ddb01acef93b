package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

func (a *API) listNamespaces(w http.ResponseWriter, r *http.Request) {
	out, err := a.store.ListNamespaces(r.Context(), filter.GenericFilter{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createNamespace(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"Name" validate:"required,hostname_rfc1123"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := validatePayload(payload); err != nil {
		writeError(w, err)
		return
	}
	ns, err := a.store.CreateNamespace(r.Context(), model.Namespace{Name: payload.Name, CreatedAt: time.Now().UTC()})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ns)
}

func (a *API) getNamespace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ns, err := a.store.GetNamespace(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

func (a *API) deleteNamespace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := a.store.DeleteNamespace(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
