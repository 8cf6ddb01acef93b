package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillCargoWithNoBodySendsDefaultSignal(t *testing.T) {
	api, mock := newTestAPI(t)
	rows := sqlmock.NewRows([]string{"key", "kind_key", "kind", "namespace_name", "node_name", "created_at", "data"})
	mock.ExpectQuery(`SELECT \* FROM processes`).WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodPost, "/v1/cargoes/hello.global/kill", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKillCargoWithSignalBody(t *testing.T) {
	api, mock := newTestAPI(t)
	rows := sqlmock.NewRows([]string{"key", "kind_key", "kind", "namespace_name", "node_name", "created_at", "data"})
	mock.ExpectQuery(`SELECT \* FROM processes`).WillReturnRows(rows)

	body := bytes.NewBufferString(`{"Signal":"SIGTERM"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/cargoes/hello.global/kill", body)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListCargoHistoriesReturnsSpecRows(t *testing.T) {
	api, mock := newTestAPI(t)
	rows := sqlmock.NewRows([]string{"key", "created_at", "kind_name", "kind_key", "version", "data", "metadata"}).
		AddRow("spec-1", time.Now().UTC(), "Cargo", "hello.global", "1", []byte(`{"Image":"nginx:1"}`), nil)
	mock.ExpectQuery(`SELECT key, created_at, kind_name, kind_key, version, data, metadata FROM specs`).WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/v1/cargoes/hello.global/histories", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spec-1")
	require.NoError(t, mock.ExpectationsWereMet())
}
