package nanocldclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNamespaceRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/namespaces/", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"Name": body["Name"]})
	}))
	defer server.Close()

	c := New("tcp://" + server.Listener.Addr().String())
	ns, err := c.CreateNamespace(context.Background(), "global")
	require.NoError(t, err)
	assert.Equal(t, "global", ns.Name)
}

func TestDoTranslatesErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found", "code": "NotFound"})
	}))
	defer server.Close()

	c := New("tcp://" + server.Listener.Addr().String())
	_, err := c.ListCargoes(context.Background(), "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NotFound", apiErr.Code)
}

func TestApplyStateStreamsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Msg":"applying cargo hello"}` + "\n"))
		_, _ = w.Write([]byte(`{"Msg":"done"}` + "\n"))
	}))
	defer server.Close()

	c := New("tcp://" + server.Listener.Addr().String())
	var messages []ProgressMessage
	err := c.ApplyState(context.Background(), map[string]string{"Namespace": "global"}, func(m ProgressMessage) {
		messages = append(messages, m)
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "done", messages[1].Msg)
}
