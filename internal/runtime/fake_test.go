package runtime

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFakeCreateStartStop(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	id, err := f.Create(ctx, ContainerConfig{Name: "hello", Image: "nginx:alpine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Start(ctx, id); err != nil {
		t.Fatalf("start: %v", err)
	}
	state, err := f.Inspect(ctx, id)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !state.Running {
		t.Fatal("expected running container")
	}

	if err := f.Stop(ctx, id, time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
	state, _ = f.Inspect(ctx, id)
	if state.Running {
		t.Fatal("expected stopped container")
	}
}

func TestFakeInspectMissingReturnsNotFound(t *testing.T) {
	f := NewFake()
	_, err := f.Inspect(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFakeRemoveIsIdempotent(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	id, _ := f.Create(ctx, ContainerConfig{Name: "x"})
	if err := f.Remove(ctx, id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.Remove(ctx, id); err != nil {
		t.Fatalf("remove again should be a no-op: %v", err)
	}
}

func TestFakeListByLabel(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	id1, _ := f.Create(ctx, ContainerConfig{Name: "a", Labels: map[string]string{"io.nanocl.c": "cargo-hello@global"}})
	_, _ = f.Create(ctx, ContainerConfig{Name: "b", Labels: map[string]string{"io.nanocl.c": "cargo-other@global"}})

	ids, err := f.ListByLabel(ctx, map[string]string{"io.nanocl.c": "cargo-hello@global"})
	if err != nil {
		t.Fatalf("list by label: %v", err)
	}
	if len(ids) != 1 || ids[0] != id1 {
		t.Fatalf("expected only %s, got %v", id1, ids)
	}
}
