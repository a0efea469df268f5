package hass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpp/homer/internal/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return New(&config.HAConfig{Host: u.Host, Token: "seed-token"})
}

func TestGetState(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/states/sensor.office_temp", r.URL.Path)
		assert.Equal(t, "Bearer seed-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entity_id":"sensor.office_temp","state":"21.6"}`))
	})

	state, err := c.GetState(context.Background(), "sensor.office_temp")
	require.NoError(t, err)
	assert.Equal(t, "21.6", state)
}

func TestGetStateNonOK(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetState(context.Background(), "sensor.missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestGetStateBadBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.GetState(context.Background(), "sensor.broken")
	assert.Error(t, err)
}
