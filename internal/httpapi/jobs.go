package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/filter"
	"github.com/nanocl-project/nanocld/internal/model"
	"github.com/nanocl-project/nanocld/internal/process"
)

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	out, err := a.store.ListJobs(r.Context(), filter.GenericFilter{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type jobContainerSpec struct {
	Name  string   `json:"Name"`
	Image string   `json:"Image"`
	Cmd   []string `json:"Cmd"`
	Env   []string `json:"Env"`
}

type jobCreatePayload struct {
	Name       string             `json:"Name"`
	Containers []jobContainerSpec `json:"Containers"`
}

// createJob persists the job's inlined spec and runs one container per
// entry in Containers. Jobs are single-revision: there is no Spec row, the
// submitted document is the job's only record of itself.
func (a *API) createJob(w http.ResponseWriter, r *http.Request) {
	var payload jobCreatePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	job, err := a.store.CreateJob(r.Context(), model.Job{
		Key: payload.Name, Data: data, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := a.status.Create(r.Context(), payload.Name); err != nil {
		writeError(w, err)
		return
	}

	specs := make([]process.JobContainerSpec, 0, len(payload.Containers))
	for _, c := range payload.Containers {
		specs = append(specs, process.JobContainerSpec{Name: c.Name, Image: c.Image, Cmd: c.Cmd, Env: c.Env})
	}
	cfgs := process.BuildJobContainerConfigs(payload.Name, specs)
	if _, err := a.recon.CreateReplicas(r.Context(), payload.Name, "Job", "global", a.node.Name, cfgs); err != nil {
		writeError(w, err)
		return
	}
	if err := a.recon.StartByKindKey(r.Context(), payload.Name, eventbus.KindJob, "global", a.node.Name, 0, nil); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	job, err := a.store.GetJobByKey(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) deleteJob(w http.ResponseWriter, r *http.Request) {
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
	if err := a.store.DeleteJob(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
