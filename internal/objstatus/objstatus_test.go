package objstatus

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/nanocl-project/nanocld/internal/model"
	"github.com/nanocl-project/nanocld/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(store.New(sqlx.NewDb(db, "postgres"))), mock
}

func statusRows(actual model.Status) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"key", "wanted", "prev_wanted", "actual", "prev_actual", "updated_at"}).
		AddRow("cargo-1", model.StatusCreated, model.StatusCreated, actual, actual, time.Now().UTC())
}

func TestBeginStart_NoOpWhenAlreadyRunning(t *testing.T) {
	e, mock := newTestEngine(t)
	mock.ExpectQuery(`SELECT \* FROM obj_ps_statuses WHERE key = \$1`).
		WithArgs("cargo-1").
		WillReturnRows(statusRows(model.StatusRunning))

	started, err := e.BeginStart(context.Background(), "cargo-1")
	if err != nil {
		t.Fatalf("begin start: %v", err)
	}
	if started {
		t.Fatal("expected no-op when already running")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBeginStart_TransitionsToStarting(t *testing.T) {
	e, mock := newTestEngine(t)
	mock.ExpectQuery(`SELECT \* FROM obj_ps_statuses WHERE key = \$1`).
		WithArgs("cargo-1").
		WillReturnRows(statusRows(model.StatusStopped))
	mock.ExpectExec(`UPDATE obj_ps_statuses`).WillReturnResult(sqlmock.NewResult(0, 1))

	started, err := e.BeginStart(context.Background(), "cargo-1")
	if err != nil {
		t.Fatalf("begin start: %v", err)
	}
	if !started {
		t.Fatal("expected transition to occur")
	}
}

func TestBeginStop_NoOpWhenAlreadyStopped(t *testing.T) {
	e, mock := newTestEngine(t)
	mock.ExpectQuery(`SELECT \* FROM obj_ps_statuses WHERE key = \$1`).
		WithArgs("cargo-1").
		WillReturnRows(statusRows(model.StatusStopped))

	stopped, err := e.BeginStop(context.Background(), "cargo-1")
	if err != nil {
		t.Fatalf("begin stop: %v", err)
	}
	if stopped {
		t.Fatal("expected no-op when already stopped")
	}
}
