// Package runtime declares the container-runtime surface the Process
// Reconciler drives. The daemon speaks it over a Docker-compatible engine;
// this package defines only the narrow interface and a deterministic test
// fake, leaving the real engine client out of scope.
package runtime

import (
	"context"
	stderrors "errors"
	"io"
	"time"
)

// ContainerConfig is the resolved, runtime-agnostic shape the reconciler
// hands to Client.Create. It is derived from a Spec by the process package.
type ContainerConfig struct {
	Name       string
	Image      string
	Cmd        []string
	Env        []string
	Labels     map[string]string
	Mounts     []Mount
	CPUCount   int64
	MemoryMiB  int64
	Privileged bool
	Devices    []string
	Network    string
}

// Mount binds a host path into the container.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// ContainerState reports a runtime-observed container's condition.
type ContainerState struct {
	ID      string
	Running bool
	Failed  bool
	ExitCode int
}

// KillOptions configures Client.Kill's signal.
type KillOptions struct {
	Signal string // e.g. "SIGKILL"; empty defaults to the runtime's default signal
}

// LogOptions configures Client.Logs' output window, mirroring the query
// parameters GET /cargoes/{name}/logs accepts.
type LogOptions struct {
	Tail       string
	Since      string
	Until      string
	Follow     bool
	Timestamps bool
	Stdout     bool
	Stderr     bool
}

// ExecOptions configures the one-shot command Client.Exec runs inside a
// container.
type ExecOptions struct {
	Cmd    []string
	Env    []string
	Tty    bool
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Client is the narrow surface the reconciler needs from a container
// runtime: create, lifecycle verbs, and inspection, all keyed by the
// runtime-assigned container ID.
type Client interface {
	// Create materializes (but does not start) a container for cfg,
	// returning its runtime-assigned ID.
	Create(ctx context.Context, cfg ContainerConfig) (id string, err error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, timeout time.Duration) error
	Restart(ctx context.Context, id string, timeout time.Duration) error
	Kill(ctx context.Context, id string, opts KillOptions) error
	// Remove deletes the container. Runtime-404 is success (idempotent).
	Remove(ctx context.Context, id string) error
	Inspect(ctx context.Context, id string) (ContainerState, error)
	// ListByLabel returns container IDs whose labels match all of selector.
	ListByLabel(ctx context.Context, selector map[string]string) ([]string, error)
	// Logs streams a container's output to w according to opts, returning
	// once the stream ends (immediately unless opts.Follow is set).
	Logs(ctx context.Context, id string, opts LogOptions, w io.Writer) error
	// Exec runs one command inside the container and waits for it to exit,
	// reporting its exit code.
	Exec(ctx context.Context, id string, opts ExecOptions) (exitCode int, err error)
}

// ErrNotFound is returned by Inspect/Remove/Stop when the runtime has no
// record of the container. Reconciler callers translate this into
// success for Remove, and into an Unknown/Stopped status elsewhere.
var ErrNotFound = &NotFoundError{}

// NotFoundError marks a runtime-404. Defined as a distinct type (rather than
// a sentinel errors.New) so runtime adapters can wrap it with the
// container ID without losing errors.Is matching.
type NotFoundError struct {
	ContainerID string
}

func (e *NotFoundError) Error() string {
	if e.ContainerID == "" {
		return "runtime: container not found"
	}
	return "runtime: container not found: " + e.ContainerID
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// IsNotFound reports whether err wraps a runtime-404, for callers outside
// this package that need the same check the reconciler uses internally.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return stderrors.As(err, &nf)
}
