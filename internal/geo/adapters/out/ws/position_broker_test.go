package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"una/internal/geo/domain"
	"una/internal/shared/logger"
	"una/internal/shared/ws"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBroker(t *testing.T) (*PositionBroker, *ws.Hub, string) {
	t.Helper()

	tokens := map[string]string{"alice": "user-1", "bob": "user-2"}
	hub := ws.NewHub(func(token string) (string, error) {
		if id, ok := tokens[token]; ok {
			return id, nil
		}
		return "", errors.New("bad token")
	}, logger.NewNop())
	broker := NewPositionBroker(hub, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return broker, hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connectDevice(t *testing.T, hub *ws.Hub, url, token, device, userID string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"device_id": device, "token": token}))
	var ack map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "authenticated", ack["status"])

	require.Eventually(t, func() bool { return hub.IsUserConnected(userID) }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func readRequest(t *testing.T, conn *websocket.Conn) positionRequest {
	t.Helper()
	var env struct {
		Type string          `json:"type"`
		Data positionRequest `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, MessagePositionRequest, env.Type)
	return env.Data
}

type result struct {
	pos domain.Position
	err error
}

func requestAsync(ctx context.Context, b *PositionBroker, userID string, opts domain.PositionOptions) <-chan result {
	ch := make(chan result, 1)
	go func() {
		pos, err := b.ForUser(userID).RequestPosition(ctx, opts)
		ch <- result{pos, err}
	}()
	return ch
}

func TestBroker_RoundTrip(t *testing.T) {
	broker, hub, url := startBroker(t)
	conn := connectDevice(t, hub, url, "alice", "phone-1", "user-1")

	res := requestAsync(context.Background(), broker, "user-1", domain.PositionOptions{
		HighAccuracy: true,
		Timeout:      20 * time.Second,
		MaximumAge:   5 * time.Minute,
	})

	req := readRequest(t, conn)
	assert.True(t, req.HighAccuracy)
	assert.Equal(t, int64(20000), req.TimeoutMs)
	assert.Equal(t, int64(300000), req.MaximumAgeMs)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": MessagePositionReport,
		"data": map[string]any{"request_id": req.RequestID, "latitude": 32.08, "longitude": 34.78, "accuracy": 12.5},
	}))

	select {
	case r := <-res:
		require.NoError(t, r.err)
		assert.Equal(t, 32.08, r.pos.Latitude)
		assert.Equal(t, 12.5, r.pos.Accuracy)
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
	assert.Zero(t, broker.Pending())
}

func TestBroker_PlatformError(t *testing.T) {
	broker, hub, url := startBroker(t)
	conn := connectDevice(t, hub, url, "alice", "phone-1", "user-1")

	res := requestAsync(context.Background(), broker, "user-1", domain.PositionOptions{Timeout: time.Second})
	req := readRequest(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": MessagePositionError,
		"data": map[string]any{"request_id": req.RequestID, "code": 1, "message": "User denied Geolocation"},
	}))

	r := <-res
	assert.True(t, domain.IsPermissionDenied(r.err))
}

func TestBroker_NoDevice(t *testing.T) {
	broker, _, _ := startBroker(t)

	_, err := broker.ForUser("user-1").RequestPosition(context.Background(), domain.PositionOptions{})

	assert.Equal(t, domain.KindUnavailable, domain.Classify(err))
}

func TestBroker_LateReplyDropped(t *testing.T) {
	broker, hub, url := startBroker(t)
	conn := connectDevice(t, hub, url, "alice", "phone-1", "user-1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := requestAsync(ctx, broker, "user-1", domain.PositionOptions{})
	req := readRequest(t, conn)

	r := <-res
	assert.ErrorIs(t, r.err, context.DeadlineExceeded)
	assert.Zero(t, broker.Pending())

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": MessagePositionReport,
		"data": map[string]any{"request_id": req.RequestID, "latitude": 1, "longitude": 1},
	}))
	assert.Zero(t, broker.Pending())
}

func TestBroker_ReplyFromOtherUserIgnored(t *testing.T) {
	broker, hub, url := startBroker(t)
	alice := connectDevice(t, hub, url, "alice", "phone-1", "user-1")
	bob := connectDevice(t, hub, url, "bob", "phone-2", "user-2")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	res := requestAsync(ctx, broker, "user-1", domain.PositionOptions{})
	req := readRequest(t, alice)

	require.NoError(t, bob.WriteJSON(map[string]any{
		"type": MessagePositionReport,
		"data": map[string]any{"request_id": req.RequestID, "latitude": 5, "longitude": 5},
	}))

	r := <-res
	assert.ErrorIs(t, r.err, context.DeadlineExceeded)
}
