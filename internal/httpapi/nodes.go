package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nanocl-project/nanocld/internal/filter"
)

func (a *API) listNodes(w http.ResponseWriter, r *http.Request) {
	out, err := a.store.ListNodes(r.Context(), filter.GenericFilter{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getNode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, err := a.store.GetNode(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
