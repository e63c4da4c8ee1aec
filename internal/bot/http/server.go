package bothttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"panterabot/internal/bot/auth"
	"panterabot/internal/bot/controller"
	"panterabot/internal/bot/engine"
	"panterabot/internal/bot/fsm"
	"panterabot/internal/bot/monitor"
	"panterabot/internal/bot/repo"
	"panterabot/internal/bot/settings"
	"panterabot/internal/bot/trip"
)

const tokenTTL = 24 * time.Hour

// Logger is a minimal logger interface required by the HTTP layer.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Bot is the controller surface exposed over HTTP.
type Bot interface {
	State() fsm.State
	Settings() settings.Config
	Stats() monitor.Snapshot
	Start(ctx context.Context, caps controller.Capabilities) error
	Stop(ctx context.Context) error
	Configure(ctx context.Context, cfg settings.Config) error
}

// BidJournal lists recent bid attempts.
type BidJournal interface {
	Recent(ctx context.Context, limit int) ([]repo.BidRecord, error)
}

// TokenRegistry stores push registration tokens.
type TokenRegistry interface {
	Insert(ctx context.Context, deviceID, token string) error
	Delete(ctx context.Context, token string) error
}

// Socket is a websocket endpoint.
type Socket interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// DeviceSocket is the companion device endpoint.
type DeviceSocket interface {
	Socket
	Connected() bool
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Journal      BidJournal
	Tokens       TokenRegistry
	Tokener      *auth.Manager
	DeviceSecret string
	UIClients    func() int
}

// Server handles HTTP endpoints of the bot module.
type Server struct {
	logger Logger
	bot    Bot
	device DeviceSocket
	ui     Socket
	opts   Options
}

// NewServer constructs Server.
func NewServer(logger Logger, bot Bot, device DeviceSocket, ui Socket, opts Options) *Server {
	return &Server{logger: logger, bot: bot, device: device, ui: ui, opts: opts}
}

// RegisterRoutes registers HTTP and websocket routes on mux. Control routes
// require a bearer token when a token manager is configured.
func (s *Server) RegisterRoutes(mux *pat.PatternServeMux) {
	protected := alice.New(s.requireToken)

	mux.Get("/bot/status", protected.ThenFunc(s.handleStatus))
	mux.Post("/bot/start", protected.ThenFunc(s.handleStart))
	mux.Post("/bot/stop", protected.ThenFunc(s.handleStop))
	mux.Get("/bot/settings", protected.ThenFunc(s.handleGetSettings))
	mux.Put("/bot/settings", protected.ThenFunc(s.handlePutSettings))
	mux.Post("/bot/evaluate", protected.ThenFunc(s.handleEvaluate))
	mux.Get("/bot/bids", protected.ThenFunc(s.handleBids))
	mux.Post("/bot/push-tokens", protected.ThenFunc(s.handleAddPushToken))
	mux.Del("/bot/push-tokens/:token", protected.ThenFunc(s.handleDeletePushToken))
	mux.Post("/auth/token", http.HandlerFunc(s.handleIssueToken))
	mux.Get("/ws/device", http.HandlerFunc(s.device.ServeWS))
	mux.Get("/ws/ui", protected.Then(http.HandlerFunc(s.ui.ServeWS)))
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Tokener == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			// browsers cannot set headers on websocket upgrades
			token = r.URL.Query().Get("access_token")
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authorization header missing or invalid")
			return
		}
		if _, err := s.opts.Tokener.Parse(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusResponse struct {
	State           fsm.State        `json:"state"`
	Settings        settings.Config  `json:"settings"`
	Stats           monitor.Snapshot `json:"stats"`
	DeviceConnected bool             `json:"device_connected"`
	UIClients       int              `json:"ui_clients"`
}

func (s *Server) status() statusResponse {
	resp := statusResponse{
		State:           s.bot.State(),
		Settings:        s.bot.Settings(),
		Stats:           s.bot.Stats(),
		DeviceConnected: s.device.Connected(),
	}
	if s.opts.UIClients != nil {
		resp.UIClients = s.opts.UIClients()
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

type startPayload struct {
	Capabilities controller.Capabilities `json:"capabilities"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload startPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.bot.Start(r.Context(), payload.Capabilities); err != nil {
		var perr *controller.PermissionsError
		if errors.As(err, &perr) {
			writeJSON(w, http.StatusPreconditionRequired, map[string]interface{}{
				"error":   err.Error(),
				"missing": perr.Missing,
			})
			return
		}
		s.logger.Errorf("bot start failed: %v", err)
		writeError(w, http.StatusInternalServerError, "start failed")
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.Stop(r.Context()); err != nil {
		s.logger.Errorf("bot stop failed: %v", err)
		writeError(w, http.StatusInternalServerError, "stop failed")
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bot.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg settings.Config
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.bot.Configure(r.Context(), cfg); err != nil {
		if errors.Is(err, settings.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Errorf("save settings failed: %v", err)
		writeError(w, http.StatusInternalServerError, "save settings failed")
		return
	}
	writeJSON(w, http.StatusOK, s.bot.Settings())
}

type evaluateResponse struct {
	Accepted bool          `json:"accepted"`
	Reason   engine.Reason `json:"reason,omitempty"`
	Price    *float64      `json:"price,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var t trip.Trip
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	d := engine.Evaluate(s.bot.Settings(), t)
	resp := evaluateResponse{Accepted: d.Accepted(), Reason: d.Reason}
	if price, ok := d.Price(); ok {
		resp.Price = &price
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBids(w http.ResponseWriter, r *http.Request) {
	if s.opts.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, "bid journal disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = l
	}
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	bids, err := s.opts.Journal.Recent(ctx, limit)
	if err != nil {
		s.logger.Errorf("list bids failed: %v", err)
		writeError(w, http.StatusInternalServerError, "list bids failed")
		return
	}
	if bids == nil {
		bids = []repo.BidRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bids": bids})
}

type pushTokenPayload struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

func (s *Server) handleAddPushToken(w http.ResponseWriter, r *http.Request) {
	if s.opts.Tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "push token registry disabled")
		return
	}
	var payload pushTokenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	payload.Token = strings.TrimSpace(payload.Token)
	if payload.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	if err := s.opts.Tokens.Insert(ctx, payload.DeviceID, payload.Token); err != nil {
		s.logger.Errorf("insert push token failed: %v", err)
		writeError(w, http.StatusInternalServerError, "insert push token failed")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeletePushToken(w http.ResponseWriter, r *http.Request) {
	if s.opts.Tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "push token registry disabled")
		return
	}
	token := r.URL.Query().Get(":token")
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	if err := s.opts.Tokens.Delete(ctx, token); err != nil {
		s.logger.Errorf("delete push token failed: %v", err)
		writeError(w, http.StatusInternalServerError, "delete push token failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tokenPayload struct {
	DeviceID    string `json:"device_id"`
	DeviceToken string `json:"device_token"`
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.opts.Tokener == nil || s.opts.DeviceSecret == "" {
		writeError(w, http.StatusNotFound, "token auth disabled")
		return
	}
	var payload tokenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if payload.DeviceID == "" || !auth.VerifyDeviceToken(payload.DeviceID, payload.DeviceToken, s.opts.DeviceSecret) {
		writeError(w, http.StatusUnauthorized, "invalid device credentials")
		return
	}
	token, err := s.opts.Tokener.NewJWT(payload.DeviceID, tokenTTL)
	if err != nil {
		s.logger.Errorf("issue token failed: %v", err)
		writeError(w, http.StatusInternalServerError, "issue token failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"expires_in":   int(tokenTTL.Seconds()),
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}
