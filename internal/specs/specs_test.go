package specs

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(store.New(sqlx.NewDb(db, "postgres"))), mock
}

func TestMintInsertsNewRevision(t *testing.T) {
	r, mock := newTestRegistry(t)
	mock.ExpectExec(`INSERT INTO specs`).WillReturnResult(sqlmock.NewResult(0, 1))

	key, err := r.Mint(context.Background(), "Cargo", "cargo-hello@global", "1", map[string]any{"Name": "hello"}, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if key == "" {
		t.Fatal("expected a non-empty spec key")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetVersionNotFound(t *testing.T) {
	r, mock := newTestRegistry(t)
	mock.ExpectQuery(`SELECT key, created_at, kind_name, kind_key, version, data, metadata\s+FROM specs WHERE kind_key = \$1 AND version = \$2`).
		WithArgs("cargo-hello@global", "2").
		WillReturnRows(sqlmock.NewRows([]string{"key", "created_at", "kind_name", "kind_key", "version", "data", "metadata"}))

	_, err := r.GetVersion(context.Background(), "cargo-hello@global", "2")
	if !errors.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestLatestReturnsNewestByCreationOrder(t *testing.T) {
	r, mock := newTestRegistry(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT key, created_at, kind_name, kind_key, version, data, metadata\s+FROM specs WHERE kind_key = \$1 ORDER BY created_at ASC`).
		WithArgs("cargo-hello@global").
		WillReturnRows(sqlmock.NewRows([]string{"key", "created_at", "kind_name", "kind_key", "version", "data", "metadata"}).
			AddRow("k1", now.Add(-time.Hour), "Cargo", "cargo-hello@global", "1", []byte(`{}`), nil).
			AddRow("k2", now, "Cargo", "cargo-hello@global", "2", []byte(`{}`), nil))

	latest, err := r.Latest(context.Background(), "cargo-hello@global")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Key != "k2" {
		t.Fatalf("expected k2 to be latest, got %s", latest.Key)
	}
}
