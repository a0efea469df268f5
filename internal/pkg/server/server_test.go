package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpp/homer/internal/pkg/readiness"
)

func getHealth(t *testing.T, handler http.Handler) health {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReflectsFlags(t *testing.T) {
	t.Parallel()

	flags := readiness.New()
	handler := New(flags, func() string { return "disconnected" })

	body := getHealth(t, handler)
	assert.False(t, body.NetworkReady)
	assert.False(t, body.TimeSynced)
	assert.Equal(t, int32(-1), body.LastQuad)
	assert.Equal(t, "disconnected", body.Session)

	flags.SetNetworkReady()
	flags.SetTimeSynced()
	flags.SetLastQuad(7)

	body = getHealth(t, handler)
	assert.True(t, body.NetworkReady)
	assert.True(t, body.TimeSynced)
	assert.Equal(t, int32(7), body.LastQuad)
}

func TestHealthzRejectsOtherMethods(t *testing.T) {
	t.Parallel()

	handler := New(readiness.New(), func() string { return "subscribed" })

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
