package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
)

func (a *API) listSecrets(w http.ResponseWriter, r *http.Request) {
	out, err := a.store.ListSecrets(r.Context(), filter.GenericFilter{})
	if err != nil {
		writeError(w, err)
		return
	}
	// Data is never returned decrypted over the wire; redact it.
	for i := range out {
		out[i].Data = json.RawMessage(`"***"`)
	}
	writeJSON(w, http.StatusOK, out)
}

type secretCreatePayload struct {
	Key       string `json:"Key"`
	Kind      string `json:"Kind"`
	Immutable bool   `json:"Immutable"`
	Data      string `json:"Data"`
}

func (a *API) createSecret(w http.ResponseWriter, r *http.Request) {
	var payload secretCreatePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	sealed, err := a.secrets.Seal([]byte(payload.Data))
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now().UTC()
	sec, err := a.store.CreateSecret(r.Context(), model.Secret{
		Key: payload.Key, Kind: payload.Kind, Immutable: payload.Immutable,
		Data: mustMarshal(sealed), CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	sec.Data = json.RawMessage(`"***"`)
	writeJSON(w, http.StatusCreated, sec)
}

func (a *API) getSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	sec, err := a.store.GetSecretByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	sec.Data = json.RawMessage(`"***"`)
	writeJSON(w, http.StatusOK, sec)
}

func (a *API) updateSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	existing, err := a.store.GetSecretByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload struct {
		Data string `json:"Data"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	sealed, err := a.secrets.Seal([]byte(payload.Data))
	if err != nil {
		writeError(w, err)
		return
	}
	existing.Data = mustMarshal(sealed)
	existing.UpdatedAt = time.Now().UTC()
	if err := a.store.UpdateSecret(r.Context(), existing); err != nil {
		writeError(w, err)
		return
	}
	existing.Data = json.RawMessage(`"***"`)
	writeJSON(w, http.StatusOK, existing)
}

func (a *API) deleteSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := a.store.DeleteSecret(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mustMarshal(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
