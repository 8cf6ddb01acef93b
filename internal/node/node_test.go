package node

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nanocl-project/nanocld/internal/logging"
	"github.com/nanocl-project/nanocld/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRegistry(store.New(sqlx.NewDb(db, "postgres"))), mock
}

func TestRegisterInsertsWhenMissing(t *testing.T) {
	reg, mock := newTestRegistry(t)
	mock.ExpectQuery(`SELECT \* FROM nodes`).WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectExec(`INSERT INTO nodes`).WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := reg.Register(context.Background(), "node-1", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "node-1", n.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHeartbeatRejectsDoubleStart(t *testing.T) {
	reg, mock := newTestRegistry(t)
	mock.MatchExpectationsInOrder(false)

	hb := NewHeartbeat(reg, logging.NewDefault("node-test"))
	err := hb.Start(context.Background(), "@every 1h", "node-1", "10.0.0.1")
	require.NoError(t, err)
	t.Cleanup(hb.Stop)

	err = hb.Start(context.Background(), "@every 1h", "node-1", "10.0.0.1")
	require.Error(t, err)
}

func TestHeartbeatRejectsBadSchedule(t *testing.T) {
	reg, _ := newTestRegistry(t)
	hb := NewHeartbeat(reg, logging.NewDefault("node-test"))
	err := hb.Start(context.Background(), "not a schedule", "node-1", "10.0.0.1")
	require.Error(t, err)
}
