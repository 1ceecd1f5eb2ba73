package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("t"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, tournament string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?t=" + tournament
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubDeliversToTournamentSubscribers(t *testing.T) {
	hub, srv := startHub(t)
	wudc := dial(t, srv, "wudc")
	eudc := dial(t, srv, "eudc")
	require.Eventually(t, func() bool {
		return hub.Subscribers("wudc") == 1 && hub.Subscribers("eudc") == 1
	}, 2*time.Second, 10*time.Millisecond)

	err := hub.Publish(context.Background(), model.CheckInBroadcast{
		EventID:        "e-1",
		TournamentSlug: "wudc",
		Barcodes:       []string{"000042"},
		Status:         true,
		Type:           "person",
	})
	require.NoError(t, err)

	_ = wudc.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := wudc.ReadMessage()
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []any{"000042"}, got["barcodes"])
	assert.Equal(t, true, got["status"])
	assert.Equal(t, "person", got["type"])
	assert.Contains(t, got, "component_id")

	_ = eudc.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = eudc.ReadMessage()
	assert.Error(t, err, "other tournaments receive nothing")
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "wudc")
	require.Eventually(t, func() bool { return hub.Subscribers("wudc") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers("wudc") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestDeliverWithoutSubscribersIsHarmless(t *testing.T) {
	hub, _ := startHub(t)
	hub.Deliver(model.CheckInBroadcast{TournamentSlug: "nobody", Barcodes: []string{"1"}})
	assert.Equal(t, 0, hub.Subscribers("nobody"))
}
