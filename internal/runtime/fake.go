package runtime

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Fake is a deterministic, in-memory Client used by reconciler tests. It has
// no dependency on a real container engine.
type Fake struct {
	mu         sync.Mutex
	containers map[string]*fakeContainer
	nextID     atomic.Uint64
}

type fakeContainer struct {
	cfg     ContainerConfig
	running bool
	failed  bool
}

func NewFake() *Fake {
	return &Fake{containers: make(map[string]*fakeContainer)}
}

func (f *Fake) Create(_ context.Context, cfg ContainerConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("fake-%d", f.nextID.Add(1))
	f.containers[id] = &fakeContainer{cfg: cfg}
	return id, nil
}

func (f *Fake) Start(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return &NotFoundError{ContainerID: id}
	}
	c.running = true
	return nil
}

func (f *Fake) Stop(_ context.Context, id string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return &NotFoundError{ContainerID: id}
	}
	c.running = false
	return nil
}

func (f *Fake) Restart(ctx context.Context, id string, timeout time.Duration) error {
	if err := f.Stop(ctx, id, timeout); err != nil {
		return err
	}
	return f.Start(ctx, id)
}

func (f *Fake) Kill(_ context.Context, id string, _ KillOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return &NotFoundError{ContainerID: id}
	}
	c.running = false
	c.failed = true
	return nil
}

func (f *Fake) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, id)
	return nil
}

func (f *Fake) Inspect(_ context.Context, id string) (ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return ContainerState{}, &NotFoundError{ContainerID: id}
	}
	return ContainerState{ID: id, Running: c.running, Failed: c.failed}, nil
}

func (f *Fake) ListByLabel(_ context.Context, selector map[string]string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, c := range f.containers {
		if matchesLabels(c.cfg.Labels, selector) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Logs writes one deterministic line per call; Fake never actually captures
// real container output. opts.Follow is ignored since there is nothing to
// stream — the call just returns once the canned line is written.
func (f *Fake) Logs(_ context.Context, id string, _ LogOptions, w io.Writer) error {
	f.mu.Lock()
	_, ok := f.containers[id]
	f.mu.Unlock()
	if !ok {
		return &NotFoundError{ContainerID: id}
	}
	_, err := fmt.Fprintf(w, "fake log line for %s\n", id)
	return err
}

// Exec reports success without actually running opts.Cmd; Fake has no
// process namespace to execute into.
func (f *Fake) Exec(_ context.Context, id string, opts ExecOptions) (int, error) {
	f.mu.Lock()
	_, ok := f.containers[id]
	f.mu.Unlock()
	if !ok {
		return 0, &NotFoundError{ContainerID: id}
	}
	if opts.Stdout != nil {
		fmt.Fprintf(opts.Stdout, "fake exec %v in %s\n", opts.Cmd, id)
	}
	return 0, nil
}

func matchesLabels(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

var _ Client = (*Fake)(nil)
