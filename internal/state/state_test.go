package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nanocl-project/nanocld/internal/logging"
)

func collect(t *testing.T, ch <-chan ProgressMessage, n int) []ProgressMessage {
	t.Helper()
	out := make([]ProgressMessage, 0, n)
	for i := 0; i < n; i++ {
		select {
		case m := <-ch:
			out = append(out, m)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for progress message %d/%d", i+1, n)
		}
	}
	return out
}

func TestApplyRunsGroupsInOrderAndEmitsLifecycleMessages(t *testing.T) {
	var created []string
	progress := make(chan ProgressMessage, 32)
	log := logging.NewDefault("state-test")

	d := Deployment{Groups: []Group{
		{
			Noun: "Resource", Plural: "resources",
			Items: []Item{{
				Name: "proxy-rule",
				Apply: func(ctx context.Context) error {
					created = append(created, "resource:proxy-rule")
					return nil
				},
			}},
		},
		{
			Noun: "Cargo", Plural: "cargoes", Namespaced: true, Namespace: "global",
			Items: []Item{{
				Name: "hello",
				Apply: func(ctx context.Context) error {
					created = append(created, "cargo:hello")
					return nil
				},
				Start: func(ctx context.Context) error { return nil },
			}},
		},
	}}

	Apply(context.Background(), d, progress, log)
	close(progress)

	var msgs []string
	for m := range progress {
		msgs = append(msgs, m.Msg)
	}

	want := []string{
		"Creating 1 resources",
		"Creating Resource proxy-rule",
		"Created Resource proxy-rule",
		"Creating 1 cargoes in namespace: global",
		"Creating Cargo hello",
		"Created Cargo hello",
		"Started Cargo hello",
	}
	if len(msgs) != len(want) {
		t.Fatalf("got %v, want %v", msgs, want)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Fatalf("message %d: got %q, want %q", i, msgs[i], want[i])
		}
	}

	if len(created) != 2 || created[0] != "resource:proxy-rule" || created[1] != "cargo:hello" {
		t.Fatalf("expected resources applied before cargoes, got %v", created)
	}
}

func TestApplyEmitsErrorWithoutAbortingOtherItems(t *testing.T) {
	progress := make(chan ProgressMessage, 32)
	log := logging.NewDefault("state-test")

	d := Deployment{Groups: []Group{
		{
			Noun: "Cargo", Plural: "cargoes",
			Items: []Item{
				{Name: "bad", Apply: func(ctx context.Context) error { return errors.New("boom") }},
				{Name: "good", Apply: func(ctx context.Context) error { return nil }},
			},
		},
	}}

	Apply(context.Background(), d, progress, log)
	close(progress)

	var sawError, sawGoodCreated bool
	for m := range progress {
		if m.Error == "boom" {
			sawError = true
		}
		if m.Msg == "Created Cargo good" {
			sawGoodCreated = true
		}
	}
	if !sawError || !sawGoodCreated {
		t.Fatalf("expected both the error and the sibling item's success, sawError=%v sawGoodCreated=%v", sawError, sawGoodCreated)
	}
}

func TestRevertSkipsMissingItems(t *testing.T) {
	progress := make(chan ProgressMessage, 32)
	log := logging.NewDefault("state-test")
	var deleted []string

	d := Deployment{Groups: []Group{
		{
			Noun: "Cargo", Plural: "cargoes",
			Items: []Item{
				{
					Name:   "ghost",
					Exists: func(ctx context.Context) (bool, error) { return false, nil },
					Revert: func(ctx context.Context) error { deleted = append(deleted, "ghost"); return nil },
				},
				{
					Name:   "present",
					Exists: func(ctx context.Context) (bool, error) { return true, nil },
					Revert: func(ctx context.Context) error { deleted = append(deleted, "present"); return nil },
				},
			},
		},
	}}

	Revert(context.Background(), d, progress, log)
	close(progress)

	var sawSkip bool
	for m := range progress {
		if m.Msg == "Skipping Cargo ghost [NOT FOUND]" {
			sawSkip = true
		}
	}
	if !sawSkip {
		t.Fatal("expected a skip message for the missing item")
	}
	if len(deleted) != 1 || deleted[0] != "present" {
		t.Fatalf("expected only the present item's Revert to run, got %v", deleted)
	}
}

func TestApplyAbortsWhenProgressReceiverGoesAway(t *testing.T) {
	progress := make(chan ProgressMessage) // unbuffered, nobody reads
	log := logging.NewDefault("state-test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	d := Deployment{Groups: []Group{
		{Noun: "Cargo", Plural: "cargoes", Items: []Item{{
			Name:  "never",
			Apply: func(ctx context.Context) error { called = true; return nil },
		}}},
	}}

	Apply(ctx, d, progress, log)
	if called {
		t.Fatal("expected Apply to abort before invoking any item's Apply")
	}
}
