package ws

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
	"go.uber.org/zap"

	"panterabot/internal/bot/auth"
	"panterabot/internal/bot/trip"
)

func dialDevice(t *testing.T, hub *DeviceHub, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, hub.Connected, time.Second, 5*time.Millisecond)
	return conn
}

func TestDeviceHubRejectsUnauthenticated(t *testing.T) {
	hub := NewDeviceHub("secret", 0, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws/device", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws/device?device_id=pixel&token=bad", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hub.Connected())
}

func TestDeviceHubPollWithoutDevice(t *testing.T) {
	hub := NewDeviceHub("", 0, zap.NewNop().Sugar())
	_, err := hub.Poll(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.ErrorIs(t, hub.PlaceBid(context.Background(), trip.Trip{ID: "a"}, 100), ErrNoDevice)
	assert.ErrorIs(t, hub.Notify(context.Background(), "t", "b"), ErrNoDevice)
}

func TestDeviceHubReportsTrips(t *testing.T) {
	hub := NewDeviceHub("secret", 0, zap.NewNop().Sugar())
	conn := dialDevice(t, hub, "device_id=pixel&token="+auth.DeviceToken("pixel", "secret"))
	assert.Equal(t, "pixel", hub.DeviceID())

	require.NoError(t, conn.WriteJSON(DeviceMessage{Type: "trips", Trips: []trip.Trip{
		{ID: "a", Distance: 5.2, PassengerRating: 4.5},
		{ID: "b", Distance: 3, PassengerRating: 4.9},
	}}))

	var got []trip.Trip
	require.Eventually(t, func() bool {
		trips, err := hub.Poll(context.Background())
		if err != nil {
			return false
		}
		got = append(got, trips...)
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 5.2, got[0].Distance)

	trips, err := hub.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trips, "poll drains the buffer")
}

func TestDeviceHubBufferDropsOldest(t *testing.T) {
	hub := NewDeviceHub("", 2, zap.NewNop().Sugar())
	hub.enqueue([]trip.Trip{{ID: "1"}, {ID: "2"}})
	hub.enqueue([]trip.Trip{{ID: "3"}})

	trips, err := hub.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "2", trips[0].ID)
	assert.Equal(t, "3", trips[1].ID)
}

func TestDeviceHubPlaceBid(t *testing.T) {
	hub := NewDeviceHub("", 0, zap.NewNop().Sugar())
	conn := dialDevice(t, hub, "device_id=pixel")

	answers := []DeviceMessage{{OK: true}, {OK: false, Error: "offer expired"}}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, answer := range answers {
			var cmd PlaceBidCommand
			if !assert.NoError(t, conn.ReadJSON(&cmd)) {
				return
			}
			assert.Equal(t, "place_bid", cmd.Type)
			assert.Equal(t, "trip-1", cmd.TripID)
			assert.Equal(t, 208.0, cmd.Price)
			assert.NotEmpty(t, cmd.BidID)
			answer.Type = "bid_result"
			answer.BidID = cmd.BidID
			if !assert.NoError(t, conn.WriteJSON(answer)) {
				return
			}
		}
	}()

	require.NoError(t, hub.PlaceBid(context.Background(), trip.Trip{ID: "trip-1"}, 208))

	err := hub.PlaceBid(context.Background(), trip.Trip{ID: "trip-1"}, 208)
	assert.ErrorIs(t, err, ErrBidRejected)
	assert.Contains(t, err.Error(), "offer expired")
	<-done
}

func TestDeviceHubResetDropsBufferedTrips(t *testing.T) {
	hub := NewDeviceHub("", 0, zap.NewNop().Sugar())
	hub.enqueue([]trip.Trip{{ID: "stale"}})
	hub.Reset()

	_, err := hub.Poll(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)

	hub.enqueue([]trip.Trip{{ID: "fresh"}})
	trips, err := hub.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "fresh", trips[0].ID)
}

func TestDeviceHubReconnectFailsPendingBid(t *testing.T) {
	hub := NewDeviceHub("", 0, zap.NewNop().Sugar())
	old := dialDevice(t, hub, "device_id=old")

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		var cmd PlaceBidCommand
		assert.NoError(t, old.ReadJSON(&cmd))
	}()

	result := make(chan error, 1)
	go func() {
		result <- hub.PlaceBid(context.Background(), trip.Trip{ID: "a"}, 120)
	}()
	<-sent

	dialDevice(t, hub, "device_id=new")
	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrNoDevice)
	case <-time.After(time.Second):
		t.Fatal("bid on the replaced connection is still pending")
	}
	assert.Eventually(t, func() bool { return hub.DeviceID() == "new" }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.Connected())
}

func TestDeviceHubPlaceBidTimesOut(t *testing.T) {
	hub := NewDeviceHub("", 0, zap.NewNop().Sugar())
	dialDevice(t, hub, "device_id=pixel")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := hub.PlaceBid(ctx, trip.Trip{ID: "slow"}, 150)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeviceHubNotifyAndPing(t *testing.T) {
	hub := NewDeviceHub("", 0, zap.NewNop().Sugar())
	conn := dialDevice(t, hub, "device_id=pixel")

	require.NoError(t, hub.Notify(context.Background(), "Bot started", "Searching"))
	var note NotificationPayload
	require.NoError(t, conn.ReadJSON(&note))
	assert.Equal(t, NotificationPayload{Type: "notification", Title: "Bot started", Body: "Searching"}, note)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(msg))
}

func TestDeviceHubDisconnectFailsPendingBid(t *testing.T) {
	hub := NewDeviceHub("", 0, zap.NewNop().Sugar())
	conn := dialDevice(t, hub, "device_id=pixel")

	go func() {
		var cmd PlaceBidCommand
		_ = conn.ReadJSON(&cmd)
		conn.Close()
	}()

	err := hub.PlaceBid(context.Background(), trip.Trip{ID: "a"}, 120)
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.Eventually(t, func() bool { return !hub.Connected() }, time.Second, 5*time.Millisecond)
}

func TestUIHubBroadcast(t *testing.T) {
	hub := NewUIHub(zap.NewNop().Sugar())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()
	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Notify(context.Background(), "Bid placed", "208 for 5.2 km"))

	for _, conn := range []*websocket.Conn{first, second} {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var event UIEvent
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, "notification", event.Type)
		assert.Equal(t, "Bid placed", event.Title)
	}
}
