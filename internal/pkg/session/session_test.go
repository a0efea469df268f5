package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpp/homer/internal/pkg/config"
	"github.com/dpp/homer/internal/pkg/model"
	"github.com/dpp/homer/internal/pkg/readiness"
)

type fixture struct {
	manager *Manager
	cmds    chan Command
	events  chan *model.EventFrame
	conns   chan *websocket.Conn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	flags := readiness.New()
	flags.SetNetworkReady()

	cmds := make(chan Command, 4)
	events := make(chan *model.EventFrame, 8)
	m := New(&config.HAConfig{Host: u.Host, Token: "secret-token"}, flags, cmds, events)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = m.Run(ctx)
	}()

	return &fixture{manager: m, cmds: cmds, events: events, conns: conns}
}

func (f *fixture) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("no connection attempt arrived")
		return nil
	}
}

func readJSON(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func writeFrame(t *testing.T, c *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestAuthenticateSubscribeAndForward(t *testing.T) {
	f := newFixture(t)
	conn := f.accept(t)

	auth := readJSON(t, conn)
	assert.Equal(t, "auth", auth["type"])
	assert.Equal(t, "secret-token", auth["access_token"])

	writeFrame(t, conn, `{"type":"auth_ok","ha_version":"2024.6"}`)

	sub := readJSON(t, conn)
	assert.Equal(t, "subscribe_events", sub["type"])
	assert.Equal(t, float64(model.SubscribeRequestID), sub["id"])

	require.Eventually(t, func() bool {
		return f.manager.State() == Subscribed
	}, 2*time.Second, 10*time.Millisecond)

	writeFrame(t, conn, `{"type":"event","event":{"data":{"entity_id":"light.desk","new_state":{"state":"on"}}}}`)

	select {
	case frame := <-f.events:
		id, ok := frame.EntityID()
		require.True(t, ok)
		assert.Equal(t, "light.desk", id)
		value, ok := frame.NewState()
		require.True(t, ok)
		assert.Equal(t, "on", value)
	case <-time.After(3 * time.Second):
		t.Fatal("event frame was not forwarded")
	}
}

func TestUnparseableFrameIsDroppedWithoutDisconnect(t *testing.T) {
	f := newFixture(t)
	conn := f.accept(t)

	readJSON(t, conn) // auth
	writeFrame(t, conn, `{"type":"auth_ok"}`)
	readJSON(t, conn) // subscribe

	writeFrame(t, conn, `{this is not json`)
	writeFrame(t, conn, `{"type":"event","event":{"data":{"entity_id":"sensor.a","new_state":{"state":"1"}}}}`)

	select {
	case frame := <-f.events:
		id, _ := frame.EntityID()
		assert.Equal(t, "sensor.a", id)
	case <-time.After(3 * time.Second):
		t.Fatal("session did not survive the malformed frame")
	}
	assert.Equal(t, Subscribed, f.manager.State())
}

func TestOutboundCommandsWhileLive(t *testing.T) {
	f := newFixture(t)
	conn := f.accept(t)

	readJSON(t, conn) // auth
	writeFrame(t, conn, `{"type":"auth_ok"}`)
	readJSON(t, conn) // subscribe

	f.cmds <- SendText(`{"type":"ping"}`)
	ping := readJSON(t, conn)
	assert.Equal(t, "ping", ping["type"])

	f.cmds <- SendMessage{Payload: model.NewSubscribeRequest()}
	msg := readJSON(t, conn)
	assert.Equal(t, "subscribe_events", msg["type"])
}

func TestTransportErrorTriggersReconnect(t *testing.T) {
	f := newFixture(t)
	conn := f.accept(t)

	readJSON(t, conn) // auth
	writeFrame(t, conn, `{"type":"auth_ok"}`)
	readJSON(t, conn) // subscribe

	require.NoError(t, conn.Close())

	// a fresh connect attempt must begin within the fixed backoff window
	replacement := f.accept(t)
	auth := readJSON(t, replacement)
	assert.Equal(t, "auth", auth["type"])
}

func TestReconnectCommandForcesTeardown(t *testing.T) {
	f := newFixture(t)
	conn := f.accept(t)

	readJSON(t, conn) // auth
	writeFrame(t, conn, `{"type":"auth_ok"}`)
	readJSON(t, conn) // subscribe

	f.cmds <- Reconnect{}

	replacement := f.accept(t)
	auth := readJSON(t, replacement)
	assert.Equal(t, "auth", auth["type"])
}
