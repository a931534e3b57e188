package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"match-engine/internal/analytics"
	"match-engine/internal/domain/matching"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFeed_BroadcastsRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(NewHandler(hub, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	NewMatchFeed(hub).Publish(analytics.Record{
		ID:        "rec-1",
		Mode:      analytics.ModeForward,
		Used:      matching.StrategyGeoPriority,
		Aggregate: 64,
		Success:   true,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt MatchEvent
	require.NoError(t, json.Unmarshal(msg, &evt))
	assert.Equal(t, EventMatchRecorded, evt.Type)
	assert.Equal(t, "rec-1", evt.Record.ID)
	assert.Equal(t, matching.StrategyGeoPriority, evt.Record.Used)
	assert.Equal(t, 64, evt.Record.Aggregate)
}

func TestHub_DisconnectAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(NewHandler(hub, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
}

func TestNilFeedAndHub(t *testing.T) {
	var feed *MatchFeed
	assert.NotPanics(t, func() { feed.Publish(analytics.Record{}) })

	var hub *Hub
	assert.NotPanics(t, func() { hub.Broadcast([]byte("x")) })
	assert.Zero(t, hub.ClientCount())
}
