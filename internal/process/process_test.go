package process

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/logging"
	"github.com/nanocl-project/nanocld/internal/model"
	"github.com/nanocl-project/nanocld/internal/objstatus"
	"github.com/nanocl-project/nanocld/internal/runtime"
	"github.com/nanocl-project/nanocld/internal/specs"
	"github.com/nanocl-project/nanocld/internal/store"
)

func newTestReconciler(t *testing.T) (*Reconciler, sqlmock.Sqlmock, *runtime.Fake, *eventbus.Bus) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := store.New(sqlx.NewDb(db, "postgres"))
	bus := eventbus.New(8)
	rt := runtime.NewFake()
	r := New(s, objstatus.New(s), specs.New(s), rt, bus, logging.NewDefault("process"))
	return r, mock, rt, bus
}

func processRows(keys ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"key", "created_at", "updated_at", "name", "kind", "data", "node_key", "kind_key"})
	for i, k := range keys {
		rows.AddRow(k, time.Now().UTC().Add(time.Duration(i)*time.Second), time.Now().UTC(), k, "Cargo", []byte("{}"), "node-1", "hello.global")
	}
	return rows
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	unlock := km.Lock("a")

	done := make(chan struct{})
	go func() {
		u := km.Lock("a")
		u()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	<-done
}

func TestReplicationTargetCount(t *testing.T) {
	node := NodeIdentity{Name: "node-1", Groups: []string{"edge"}}

	cases := []struct {
		name string
		repl Replication
		want int
	}{
		{"auto", Replication{Mode: ReplAuto}, 1},
		{"unique", Replication{Mode: ReplUnique}, 1},
		{"unique_by_node_groups_match", Replication{Mode: ReplUniqueByNodeGroups, Groups: []string{"edge"}}, 1},
		{"unique_by_node_groups_no_match", Replication{Mode: ReplUniqueByNodeGroups, Groups: []string{"core"}}, 0},
		{"unique_by_node_names_match", Replication{Mode: ReplUniqueByNodeNames, Names: []string{"node-1"}}, 1},
		{"unique_by_node_names_no_match", Replication{Mode: ReplUniqueByNodeNames, Names: []string{"node-2"}}, 0},
		{"static", Replication{Mode: ReplStatic, N: 3}, 3},
		{"static_by_node_groups_match", Replication{Mode: ReplStaticByNodeGroups, Groups: []string{"edge"}, N: 2}, 2},
		{"static_by_node_groups_no_match", Replication{Mode: ReplStaticByNodeGroups, Groups: []string{"core"}, N: 2}, 0},
		{"static_by_node_names_match", Replication{Mode: ReplStaticByNodeNames, Names: []string{"node-1"}, N: 4}, 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.repl.TargetCount(node); got != c.want {
				t.Fatalf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestBuildVmContainerConfigKVMAddsDeviceAndFlag(t *testing.T) {
	cfg := BuildVmContainerConfig("vm-test.global.v", "global", VmHostConfig{KVM: true, ImagePath: "/var/lib/nanocl/vm.img"})
	if cfg.Name != "vm-test.global.v" {
		t.Fatalf("unexpected name: %s", cfg.Name)
	}
	if cfg.CPUCount != 1 || cfg.MemoryMiB != 512 {
		t.Fatalf("expected defaults, got cpu=%d mem=%d", cfg.CPUCount, cfg.MemoryMiB)
	}
	foundDev := false
	for _, d := range cfg.Devices {
		if d == "/dev/kvm" {
			foundDev = true
		}
	}
	if !foundDev {
		t.Fatal("expected /dev/kvm device when KVM enabled")
	}
	foundFlag := false
	for _, c := range cfg.Cmd {
		if c == "-accel" {
			foundFlag = true
		}
	}
	if !foundFlag {
		t.Fatal("expected -accel flag when KVM enabled")
	}
}

func TestMergeCargoSpecOnlyContainerFieldsTriggerChange(t *testing.T) {
	image := "nginx:1.25"
	current := CargoSpecData{Image: &image, Env: []string{"A=1"}}

	merged, changed := mergeCargoSpec(current, CargoPatch{Replication: &Replication{Mode: ReplStatic, N: 2}})
	if changed {
		t.Fatal("replication-only patch should not mark container fields changed")
	}
	if merged.Replication == nil || merged.Replication.N != 2 {
		t.Fatal("expected replication to be merged")
	}

	newImage := "nginx:1.26"
	merged, changed = mergeCargoSpec(current, CargoPatch{Image: &newImage})
	if !changed {
		t.Fatal("image change should mark container fields changed")
	}
	if *merged.Image != newImage {
		t.Fatalf("expected merged image %s, got %s", newImage, *merged.Image)
	}
}

func TestNextVersion(t *testing.T) {
	if got := nextVersion("1"); got != "2" {
		t.Fatalf("expected 2, got %s", got)
	}
	if got := nextVersion(""); got != "1" {
		t.Fatalf("expected 1 for empty current version, got %s", got)
	}
}

func TestStartByKindKeyNoOpWhenAlreadyRunning(t *testing.T) {
	r, mock, _, bus := newTestReconciler(t)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	mock.ExpectQuery(`SELECT \* FROM obj_ps_statuses WHERE key = \$1`).
		WithArgs("hello.global").
		WillReturnRows(sqlmock.NewRows([]string{"key", "wanted", "prev_wanted", "actual", "prev_actual", "updated_at"}).
			AddRow("hello.global", model.StatusRunning, model.StatusRunning, model.StatusRunning, model.StatusRunning, time.Now().UTC()))

	if err := r.StartByKindKey(context.Background(), "hello.global", eventbus.KindCargo, "global", "node-1", 1, nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case ev := <-sub.Events():
		t.Fatalf("expected no event, got %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStartByKindKeyMaterializesContainersOnFirstStart(t *testing.T) {
	r, mock, rt, bus := newTestReconciler(t)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	statusRow := func(actual model.Status) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"key", "wanted", "prev_wanted", "actual", "prev_actual", "updated_at"}).
			AddRow("hello.global", model.StatusCreated, model.StatusCreated, actual, model.StatusCreated, time.Now().UTC())
	}
	mock.ExpectQuery(`SELECT \* FROM obj_ps_statuses WHERE key = \$1`).
		WithArgs("hello.global").WillReturnRows(statusRow(model.StatusCreated))
	mock.ExpectQuery(`SELECT \* FROM obj_ps_statuses WHERE key = \$1`).
		WithArgs("hello.global").WillReturnRows(statusRow(model.StatusCreated))
	mock.ExpectExec(`UPDATE obj_ps_statuses`).WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT \* FROM processes WHERE kind_key = \$1 ORDER BY created_at ASC`).
		WithArgs("hello.global").WillReturnRows(processRows())
	mock.ExpectExec(`INSERT INTO processes`).WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT \* FROM processes WHERE kind_key = \$1 ORDER BY created_at ASC`).
		WithArgs("hello.global").WillReturnRows(processRows("fake-1"))

	buildCfg := func(int) runtime.ContainerConfig { return runtime.ContainerConfig{Name: "hello.global-0"} }
	if err := r.StartByKindKey(context.Background(), "hello.global", eventbus.KindCargo, "global", "node-1", 1, buildCfg); err != nil {
		t.Fatalf("start: %v", err)
	}

	state, err := rt.Inspect(context.Background(), "fake-1")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !state.Running {
		t.Fatal("expected the materialized container to have been started")
	}

	select {
	case ev := <-sub.Events():
		if ev.Action != eventbus.ActionStarting {
			t.Fatalf("expected Starting event, got %+v", ev)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("expected a Starting event")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStopByKindKeyReturnsEarlyOnFirstNotRunning(t *testing.T) {
	r, mock, rt, bus := newTestReconciler(t)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	id1, _ := rt.Create(context.Background(), runtime.ContainerConfig{Name: "c1"})
	id2, _ := rt.Create(context.Background(), runtime.ContainerConfig{Name: "c2"})
	_ = rt.Start(context.Background(), id2) // only the second is running; first stays Created

	mock.ExpectQuery(`SELECT \* FROM processes WHERE kind_key = \$1 ORDER BY created_at ASC`).
		WithArgs("hello.global").
		WillReturnRows(processRows(id1, id2))

	if err := r.StopByKindKey(context.Background(), "hello.global", eventbus.KindCargo); err != nil {
		t.Fatalf("stop: %v", err)
	}

	select {
	case ev := <-sub.Events():
		t.Fatalf("expected no Stopping event on early return, got %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}

	state, err := rt.Inspect(context.Background(), id2)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !state.Running {
		t.Fatal("second container should not have been stopped once the loop returned early")
	}
}
