package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPair returns a server side Conn registered under id and the client end.
func newPair(t *testing.T, id int64) (*Conn, *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- c
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case sc := <-serverConns:
		return NewConn(context.Background(), id, sc), client
	case <-time.After(2 * time.Second):
		t.Fatal("server side websocket not established")
		return nil, nil
	}
}

func TestHub_SendTo(t *testing.T) {
	hub := NewConnHub(logger.Nop())
	conn, client := newPair(t, 7)
	require.NoError(t, hub.Add(conn))

	require.NoError(t, hub.SendTo(7, map[string]any{"type": "hello"}))

	var got map[string]any
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "hello", got["type"])

	assert.ErrorIs(t, hub.SendTo(8, map[string]any{}), ErrConnIsNotFound)
}

func TestHub_HealthDoesNotDeadlockSend(t *testing.T) {
	conn, _ := newPair(t, 1)

	done := make(chan error, 1)
	go func() {
		if err := conn.Health(); err != nil {
			done <- err
			return
		}
		done <- conn.Send(map[string]string{"k": "v"})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("health+send blocked")
	}
}

func TestHub_ReplaceKeepsSingleEntry(t *testing.T) {
	hub := NewConnHub(logger.Nop())
	first, _ := newPair(t, 3)
	second, _ := newPair(t, 3)

	require.NoError(t, hub.Add(first))
	require.NoError(t, hub.Add(second))
	assert.Equal(t, 1, hub.Count())

	// stale connection must not remove its replacement
	assert.False(t, hub.DeleteConn(first))
	got, err := hub.GetConn(3)
	require.NoError(t, err)
	assert.Same(t, second, got)

	closed := make(chan struct{})
	go func() {
		hub.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("hub close blocked")
	}
	assert.Zero(t, hub.Count())
}

func TestConn_SendAfterClose(t *testing.T) {
	conn, _ := newPair(t, 2)
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Send("x"), ErrConnClosed)
	// idempotent
	assert.NoError(t, conn.Close())
}

func TestHub_OnlineGaugeIgnoresReplacement(t *testing.T) {
	hub := NewConnHub(logger.Nop())
	base := testutil.ToFloat64(metrics.DriversOnlineGauge)

	first, _ := newPair(t, 11)
	second, _ := newPair(t, 11)
	other, _ := newPair(t, 12)

	require.NoError(t, hub.Add(first))
	require.NoError(t, hub.Add(second))
	require.NoError(t, hub.Add(other))
	assert.Equal(t, base+2, testutil.ToFloat64(metrics.DriversOnlineGauge))

	// the replaced connection leaves without touching the gauge
	assert.False(t, hub.DeleteConn(first))
	assert.Equal(t, base+2, testutil.ToFloat64(metrics.DriversOnlineGauge))

	assert.True(t, hub.DeleteConn(second))
	assert.NoError(t, hub.Delete(12))
	assert.Equal(t, base, testutil.ToFloat64(metrics.DriversOnlineGauge))
}
