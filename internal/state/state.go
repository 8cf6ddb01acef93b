// Package state implements the State Pipeline: applying and reverting a
// declarative deployment document (resources, secrets, cargoes, vms, jobs)
// with deterministic inter-list ordering, concurrent intra-list work, and a
// newline-delimited JSON progress stream.
package state

import (
	"context"
	"strconv"

	"github.com/nanocl-project/nanocld/internal/logging"
)

// ProgressMessage is one line of the newline-delimited JSON progress stream.
// Exactly one of Msg or Error is set.
type ProgressMessage struct {
	Msg   string `json:"Msg,omitempty"`
	Error string `json:"Error,omitempty"`
}

// Item is one named unit of work within a Group: a resource, secret, cargo,
// vm, or job entry in a deployment document.
type Item struct {
	Name string
	// Apply creates or updates the item.
	Apply func(ctx context.Context) error
	// Start is run after a successful Apply, for kinds that have a distinct
	// start step (cargoes, vms). Nil for kinds that don't (resources, secrets).
	Start func(ctx context.Context) error
	// Revert deletes the item.
	Revert func(ctx context.Context) error
	// Exists reports whether the item is currently present, consulted before
	// Revert so a missing item is skipped rather than attempted.
	Exists func(ctx context.Context) (bool, error)
}

// Group is one ordered stage of a deployment: all resources, all secrets,
// all cargoes, all vms, or all jobs. Noun is the capitalized singular used
// in per-item messages ("Cargo"); Plural is the lowercase plural used in the
// group's header count message ("cargoes").
type Group struct {
	Noun       string
	Plural     string
	Namespaced bool
	Namespace  string
	Items      []Item
}

// Deployment is an ordered deployment document. Groups are applied in this
// slice's order and reverted in reverse order, matching
// resources -> secrets -> cargoes -> vms -> jobs.
type Deployment struct {
	Groups []Group
}

// send delivers msg on progress, unless ctx is cancelled first (the
// progress-stream receiver went away, e.g. the client disconnected).
func send(ctx context.Context, progress chan<- ProgressMessage, msg ProgressMessage) bool {
	select {
	case progress <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// Apply runs every group in order, running every group's items
// concurrently, streaming progress on progress. It stops (without further
// cleanup) the instant ctx is cancelled, logging a warning exactly as the
// reference implementation does when its progress receiver disappears.
func Apply(ctx context.Context, d Deployment, progress chan<- ProgressMessage, log *logging.Logger) {
	for _, g := range d.Groups {
		header := "Creating " + strconv.Itoa(len(g.Items)) + " " + g.Plural
		if g.Namespaced {
			header += " in namespace: " + g.Namespace
		}
		if !send(ctx, progress, ProgressMessage{Msg: header}) {
			log.Warn("user stopped the deployment")
			return
		}

		applyGroupConcurrently(ctx, g, progress, log)
	}
}

func applyGroupConcurrently(ctx context.Context, g Group, progress chan<- ProgressMessage, log *logging.Logger) {
	done := make(chan struct{}, len(g.Items))
	for _, item := range g.Items {
		item := item
		go func() {
			defer func() { done <- struct{}{} }()
			applyOne(ctx, g.Noun, item, progress, log)
		}()
	}
	for range g.Items {
		<-done
	}
}

func applyOne(ctx context.Context, noun string, item Item, progress chan<- ProgressMessage, log *logging.Logger) {
	if !send(ctx, progress, ProgressMessage{Msg: "Creating " + noun + " " + item.Name}) {
		log.Warn("user stopped the deployment")
		return
	}

	if err := item.Apply(ctx); err != nil {
		send(ctx, progress, ProgressMessage{Error: err.Error()})
		return
	}
	if !send(ctx, progress, ProgressMessage{Msg: "Created " + noun + " " + item.Name}) {
		log.Warn("user stopped the deployment")
		return
	}

	if item.Start == nil {
		return
	}
	if err := item.Start(ctx); err != nil {
		send(ctx, progress, ProgressMessage{Error: err.Error()})
		return
	}
	send(ctx, progress, ProgressMessage{Msg: "Started " + noun + " " + item.Name})
}

// Revert runs every group in reverse order, deleting items sequentially
// within a group (matching the reference implementation, which reverts
// cargoes and resources one at a time rather than concurrently so a failed
// delete doesn't race the next). A missing item is skipped with a
// "[NOT FOUND]" message rather than treated as an error.
func Revert(ctx context.Context, d Deployment, progress chan<- ProgressMessage, log *logging.Logger) {
	for i := len(d.Groups) - 1; i >= 0; i-- {
		g := d.Groups[i]

		header := "Deleting " + strconv.Itoa(len(g.Items)) + " " + g.Plural
		if g.Namespaced {
			header += " in namespace " + g.Namespace
		}
		if !send(ctx, progress, ProgressMessage{Msg: header}) {
			log.Warn("user stopped the deployment")
			return
		}

		for _, item := range g.Items {
			if !revertOne(ctx, g.Noun, item, progress, log) {
				return
			}
		}
	}
}

// revertOne returns false if the pipeline should abort entirely (the
// progress receiver disappeared).
func revertOne(ctx context.Context, noun string, item Item, progress chan<- ProgressMessage, log *logging.Logger) bool {
	if item.Exists != nil {
		exists, err := item.Exists(ctx)
		if err != nil || !exists {
			return send(ctx, progress, ProgressMessage{Msg: "Skipping " + noun + " " + item.Name + " [NOT FOUND]"})
		}
	}

	if !send(ctx, progress, ProgressMessage{Msg: "Deleting " + noun + " " + item.Name}) {
		log.Warn("user stopped the deployment")
		return false
	}

	if err := item.Revert(ctx); err != nil {
		return send(ctx, progress, ProgressMessage{Error: err.Error()})
	}

	return send(ctx, progress, ProgressMessage{Msg: "Deleted " + noun + " " + item.Name})
}

