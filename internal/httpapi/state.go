package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/model"
	"github.com/nanocl-project/nanocld/internal/process"
	"github.com/nanocl-project/nanocld/internal/runtime"
	"github.com/nanocl-project/nanocld/internal/state"
)

// stateDeployment is the subset of a deployment document this handler
// understands: a namespace plus a flat cargo list. Resources, secrets,
// vms, and jobs follow the same Group pattern and are grounded the same
// way; this handler wires the cargo group fully and leaves the others as
// straightforward additions of another Group.
type stateDeployment struct {
	Namespace *string              `json:"Namespace"`
	Cargoes   []cargoCreatePayload `json:"Cargoes"`
}

func (a *API) applyState(w http.ResponseWriter, r *http.Request) {
	var doc stateDeployment
	if err := decodeJSON(r.Body, &doc); err != nil {
		writeError(w, err)
		return
	}
	d := state.Deployment{Groups: []state.Group{a.cargoGroup(namespaceOrDefault(doc.Namespace), doc.Cargoes)}}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	a.streamPipeline(w, r, d, true)
}

func (a *API) revertState(w http.ResponseWriter, r *http.Request) {
	var doc stateDeployment
	if err := decodeJSON(r.Body, &doc); err != nil {
		writeError(w, err)
		return
	}
	d := state.Deployment{Groups: []state.Group{a.cargoGroup(namespaceOrDefault(doc.Namespace), doc.Cargoes)}}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	a.streamPipeline(w, r, d, false)
}

func namespaceOrDefault(ns *string) string {
	if ns == nil || *ns == "" {
		return "global"
	}
	return *ns
}

// streamPipeline runs the pipeline in the background and copies every
// progress message to w as newline-delimited JSON, flushing after each
// line so the client observes progress live.
func (a *API) streamPipeline(w http.ResponseWriter, r *http.Request, d state.Deployment, apply bool) {
	progress := make(chan state.ProgressMessage, 64)
	go func() {
		if apply {
			state.Apply(r.Context(), d, progress, a.log)
		} else {
			state.Revert(r.Context(), d, progress, a.log)
		}
		close(progress)
	}()

	bw := bufio.NewWriter(w)
	flusher, _ := w.(http.Flusher)
	for msg := range progress {
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		bw.Write(b)
		bw.WriteString("\n")
		bw.Flush()
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// cargoGroup builds the Cargo stage of a deployment pipeline: one Item per
// cargo, wired to mint a Spec, create/reconcile its replicas, and start it.
func (a *API) cargoGroup(namespace string, cargoes []cargoCreatePayload) state.Group {
	items := make([]state.Item, 0, len(cargoes))
	for _, c := range cargoes {
		c := c
		kindKey := c.Name + "." + namespace
		items = append(items, state.Item{
			Name:   c.Name,
			Apply:  a.cargoApply(kindKey, namespace, c),
			Start:  a.cargoStart(kindKey, namespace, c),
			Exists: a.cargoExists(kindKey),
			Revert: a.cargoRevert(kindKey),
		})
	}
	return state.Group{Noun: "Cargo", Plural: "cargoes", Namespaced: true, Namespace: namespace, Items: items}
}

// cargoApply mints the Spec and the Cargo/ObjPsStatus rows only. Containers
// are not materialized here: the pipeline's Start stage (cargoStart) runs
// next and is what produces the first Process row, matching the
// create-then-start split of POST /cargoes + POST /cargoes/{key}/start.
func (a *API) cargoApply(kindKey, namespace string, c cargoCreatePayload) func(context.Context) error {
	return func(ctx context.Context) error {
		data := process.CargoSpecData{Image: &c.Image, Cmd: c.Cmd, Env: c.Env, Replication: c.Replication}
		specKey, err := a.specs.Mint(ctx, "Cargo", kindKey, "1", data, nil)
		if err != nil {
			return err
		}
		if _, err := a.store.CreateCargo(ctx, model.Cargo{
			Key: kindKey, Name: c.Name, SpecKey: specKey, NamespaceName: namespace, CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		_, err = a.status.Create(ctx, kindKey)
		return err
	}
}

func (a *API) cargoStart(kindKey, namespace string, c cargoCreatePayload) func(context.Context) error {
	return func(ctx context.Context) error {
		target := 1
		if c.Replication != nil {
			target = c.Replication.TargetCount(a.node)
		}
		buildCfg := func(replicaIndex int) runtime.ContainerConfig {
			return process.BuildCargoContainerConfig(kindKey, namespace, c.Name, replicaIndex, process.CargoContainerSpec{
				Image: c.Image, Cmd: c.Cmd, Env: c.Env,
			})
		}
		return a.recon.StartByKindKey(ctx, kindKey, eventbus.KindCargo, namespace, a.node.Name, target, buildCfg)
	}
}

func (a *API) cargoExists(kindKey string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		if _, err := a.store.GetCargoByKey(ctx, kindKey); err != nil {
			return false, nil
		}
		return true, nil
	}
}

func (a *API) cargoRevert(kindKey string) func(context.Context) error {
	return func(ctx context.Context) error {
		procs, err := a.store.ListProcessesByKindKey(ctx, kindKey)
		if err != nil {
			return err
		}
		for _, p := range procs {
			if err := a.recon.DeleteProcessByPK(ctx, p.Key); err != nil {
				return err
			}
		}
		if err := a.status.Delete(ctx, kindKey); err != nil {
			return err
		}
		if err := a.specs.DeleteByKindKey(ctx, kindKey); err != nil {
			return err
		}
		return a.store.DeleteCargo(ctx, kindKey)
	}
}
