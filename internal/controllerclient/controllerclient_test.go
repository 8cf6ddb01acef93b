package controllerclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutRuleSendsExpectedRequest(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL)
	err := c.PutRule(context.Background(), "web-to-api", DNSRule{Network: "global", Domains: []string{"api.local"}, IP: "10.0.0.5"})
	require.NoError(t, err)
	assert.Equal(t, "/rules/web-to-api", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
}

func TestDeleteRuleTreatsNotFoundAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(server.URL)
	require.NoError(t, c.DeleteRule(context.Background(), "gone"))
}

func TestPutRulePropagatesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL)
	err := c.PutRule(context.Background(), "broken", ProxyRule{Network: "global", Domain: "x.local", Target: "10.0.0.9:80", Protocol: "http"})
	require.Error(t, err)
}
