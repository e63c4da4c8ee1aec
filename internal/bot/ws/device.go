package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"panterabot/internal/bot/auth"
	"panterabot/internal/bot/trip"
)

var (
	// ErrNoDevice is returned when no companion device is connected.
	ErrNoDevice = errors.New("no device connected")
	// ErrBidRejected is returned when the device reports it could not submit a bid.
	ErrBidRejected = errors.New("device rejected bid")
)

const (
	defaultBufferSize = 64
	readTimeout       = 90 * time.Second
	writeTimeout      = 5 * time.Second
)

// Logger is shared between hubs.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DeviceMessage is an inbound frame from the companion device.
type DeviceMessage struct {
	Type  string      `json:"type"`
	Trips []trip.Trip `json:"trips,omitempty"`
	BidID string      `json:"bid_id,omitempty"`
	OK    bool        `json:"ok,omitempty"`
	Error string      `json:"error,omitempty"`
}

// PlaceBidCommand asks the device to submit a bid in the ride-hailing app.
type PlaceBidCommand struct {
	Type   string  `json:"type"`
	BidID  string  `json:"bid_id"`
	TripID string  `json:"trip_id"`
	Price  float64 `json:"price"`
}

// NotificationPayload is a user-visible message.
type NotificationPayload struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type bidResult struct {
	ok     bool
	reason string
	err    error
}

// DeviceHub bridges the companion device that reads the ride-hailing app's
// screen and taps its buttons. Only one device is attached at a time; a new
// connection replaces the previous one.
type DeviceHub struct {
	upgrader   websocket.Upgrader
	secret     string
	bufferSize int
	logger     Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	deviceID string
	wmu      *sync.Mutex
	pending  []trip.Trip
	waiters  map[string]chan bidResult
}

// NewDeviceHub creates device hub. An empty secret disables token checks.
func NewDeviceHub(secret string, bufferSize int, logger Logger) *DeviceHub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &DeviceHub{
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		secret:     secret,
		bufferSize: bufferSize,
		logger:     logger,
		waiters:    make(map[string]chan bidResult),
	}
}

// Connected reports whether a device is attached.
func (h *DeviceHub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// DeviceID returns the id of the attached device, or "" when none is attached.
func (h *DeviceHub) DeviceID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deviceID
}

// ServeWS handles device connections.
func (h *DeviceHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		http.Error(w, "missing device_id", http.StatusUnauthorized)
		return
	}
	if h.secret != "" {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = r.Header.Get("X-Device-Token")
		}
		if !auth.VerifyDeviceToken(deviceID, token, h.secret) {
			http.Error(w, "invalid device token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("device ws upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	if h.conn != nil {
		_ = h.conn.Close()
		h.failWaitersLocked()
	}
	h.conn = conn
	h.deviceID = deviceID
	h.wmu = &sync.Mutex{}
	h.mu.Unlock()

	h.logger.Infof("device %s connected", deviceID)

	go h.readLoop(deviceID, conn)
}

func (h *DeviceHub) readLoop(deviceID string, conn *websocket.Conn) {
	defer func() {
		conn.Close()
		h.detach(conn)
		h.logger.Infof("device %s disconnected", deviceID)
	}()

	conn.SetReadLimit(256 * 1024)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if mt == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(msg)), "ping") {
			_ = h.writeTo(conn, func(c *websocket.Conn) error {
				return c.WriteMessage(websocket.TextMessage, []byte("pong"))
			})
			continue
		}

		var in DeviceMessage
		if err := json.Unmarshal(msg, &in); err != nil {
			h.logger.Errorf("device %s invalid payload: %v", deviceID, err)
			continue
		}
		switch in.Type {
		case "trips":
			h.enqueue(in.Trips)
		case "bid_result":
			h.resolve(in.BidID, bidResult{ok: in.OK, reason: in.Error})
		default:
			h.logger.Errorf("device %s unknown message type %q", deviceID, in.Type)
		}
	}
}

// detach clears conn if it is still the active device and fails its pending bids.
func (h *DeviceHub) detach(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != conn {
		return
	}
	h.conn = nil
	h.deviceID = ""
	h.wmu = nil
	h.failWaitersLocked()
}

// failWaitersLocked fails every bid sent to the current connection. Callers hold h.mu.
func (h *DeviceHub) failWaitersLocked() {
	for id, ch := range h.waiters {
		ch <- bidResult{err: ErrNoDevice}
		delete(h.waiters, id)
	}
}

// enqueue buffers reported trips, dropping the oldest beyond the buffer size.
func (h *DeviceHub) enqueue(trips []trip.Trip) {
	if len(trips) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, trips...)
	if over := len(h.pending) - h.bufferSize; over > 0 {
		h.pending = append([]trip.Trip(nil), h.pending[over:]...)
	}
}

func (h *DeviceHub) resolve(bidID string, res bidResult) {
	h.mu.Lock()
	ch, ok := h.waiters[bidID]
	delete(h.waiters, bidID)
	h.mu.Unlock()
	if !ok {
		return
	}
	ch <- res
}

// Reset drops buffered trips. Offers reported while the bot was idle are stale
// by the time it starts.
func (h *DeviceHub) Reset() {
	h.mu.Lock()
	h.pending = nil
	h.mu.Unlock()
}

// Poll drains the trips reported since the previous poll.
func (h *DeviceHub) Poll(ctx context.Context) ([]trip.Trip, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil && len(h.pending) == 0 {
		return nil, ErrNoDevice
	}
	trips := h.pending
	h.pending = nil
	return trips, nil
}

// PlaceBid sends a bid command and waits for the device to confirm it.
func (h *DeviceHub) PlaceBid(ctx context.Context, t trip.Trip, price float64) error {
	cmd := PlaceBidCommand{Type: "place_bid", BidID: uuid.NewString(), TripID: t.ID, Price: price}
	ch := make(chan bidResult, 1)

	h.mu.Lock()
	if h.conn == nil {
		h.mu.Unlock()
		return ErrNoDevice
	}
	h.waiters[cmd.BidID] = ch
	h.mu.Unlock()

	if err := h.write(cmd); err != nil {
		h.mu.Lock()
		delete(h.waiters, cmd.BidID)
		h.mu.Unlock()
		return err
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return res.err
		}
		if !res.ok {
			return fmt.Errorf("%w: %s", ErrBidRejected, res.reason)
		}
		return nil
	case <-ctx.Done():
		h.mu.Lock()
		delete(h.waiters, cmd.BidID)
		h.mu.Unlock()
		return ctx.Err()
	}
}

// Notify shows a notification on the device.
func (h *DeviceHub) Notify(ctx context.Context, title, body string) error {
	return h.write(NotificationPayload{Type: "notification", Title: title, Body: body})
}

func (h *DeviceHub) write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return ErrNoDevice
	}
	return h.writeTo(conn, func(c *websocket.Conn) error {
		return c.WriteMessage(websocket.TextMessage, data)
	})
}

func (h *DeviceHub) writeTo(conn *websocket.Conn, writer func(*websocket.Conn) error) error {
	h.mu.Lock()
	mu := h.wmu
	active := h.conn == conn
	h.mu.Unlock()
	if !active || mu == nil {
		return ErrNoDevice
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writer(conn); err != nil {
		h.logger.Errorf("device write failed: %v", err)
		return err
	}
	return nil
}
