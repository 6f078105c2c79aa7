package walker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPWalker_Advance(t *testing.T) {
	var (
		gotPayload map[string]string
		gotAuth    string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := NewHTTPWalker(server.URL, "service-key")

	err := w.Advance(context.Background(), "exec-1")
	require.NoError(t, err)

	assert.Equal(t, "exec-1", gotPayload["execution_id"])
	assert.Equal(t, "Bearer service-key", gotAuth)
}

func TestHTTPWalker_Advance_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := NewHTTPWalker(server.URL, "")

	err := w.Advance(context.Background(), "exec-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestHTTPWalker_Advance_Unreachable(t *testing.T) {
	w := NewHTTPWalker("http://127.0.0.1:1", "")

	err := w.Advance(context.Background(), "exec-1")
	assert.Error(t, err)
}
