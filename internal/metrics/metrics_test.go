package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanocl-project/nanocld/internal/logging"
	"github.com/nanocl-project/nanocld/internal/store"
)

func TestInstrumentHandlerRecordsRequest(t *testing.T) {
	handler := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/cargoes/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandlerServesRegisteredCollectors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nanocl_http_requests_total")
}

func newTestSampler(t *testing.T) (*Sampler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := store.New(sqlx.NewDb(db, "postgres"))
	return NewSampler(s, logging.NewDefault("metrics-test"), "node-1", time.Hour), mock
}

func TestSamplerIgnoresDoubleStart(t *testing.T) {
	sm, mock := newTestSampler(t)
	mock.MatchExpectationsInOrder(false)

	require.NoError(t, sm.Start(context.Background(), "@every 1h"))
	t.Cleanup(sm.Stop)
	require.NoError(t, sm.Start(context.Background(), "@every 1h"))
}
