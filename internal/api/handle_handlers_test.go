package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kunquat-go/synthcore/internal/config"
	"github.com/kunquat-go/synthcore/internal/modstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := modstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{}
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 100}))
	return NewServer(store, NewPlayerRegistry(), cfg, nil, logger)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestNewHandleAndDataRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/handles", nil)
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	env := decodeEnvelope(t, rec)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	handleID, ok := data["handle_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, handleID)

	payload := []byte(`{"name": "test module"}`)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/v1/handles/"+handleID+"/data/p_manifest.json", bytes.NewReader(payload))
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/handles/"+handleID+"/data/p_manifest.json", nil)
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, string(payload), rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/handles/"+handleID+"/keys", nil)
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	keys, ok := env.Data.(map[string]any)["keys"].([]any)
	require.True(t, ok)
	require.Contains(t, keys, "p_manifest.json")
}

func TestSetDataRejectsUnknownSuffix(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/handles", nil)
	s.ServeHTTP(rec, req)
	handleID := decodeEnvelope(t, rec).Data.(map[string]any)["handle_id"].(string)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/v1/handles/"+handleID+"/data/p_weird.txt", bytes.NewReader([]byte("x")))
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateReportsMissingKeys(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/handles", nil)
	s.ServeHTTP(rec, req)
	handleID := decodeEnvelope(t, rec).Data.(map[string]any)["handle_id"].(string)

	body := []byte(`{"required_keys": ["p_manifest.json", "p_connections.json"]}`)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/handles/"+handleID+"/validate", bytes.NewReader(body))
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]any)
	require.Equal(t, false, data["valid"])
	missing, ok := data["missing_keys"].([]any)
	require.True(t, ok)
	require.ElementsMatch(t, []any{"p_manifest.json", "p_connections.json"}, missing)
}

func TestDeleteHandleRemovesKeys(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/handles", nil)
	s.ServeHTTP(rec, req)
	handleID := decodeEnvelope(t, rec).Data.(map[string]any)["handle_id"].(string)

	req = httptest.NewRequest(http.MethodPut, "/v1/handles/"+handleID+"/data/p_manifest.json", bytes.NewReader([]byte(`{}`)))
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/v1/handles/"+handleID+"/", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/handles/"+handleID+"/keys", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Data.(map[string]any)["keys"])
}
