package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/crowd-relay/internal/models"
	"github.com/crowd-relay/internal/service"
	"github.com/crowd-relay/internal/transport"
	"github.com/crowd-relay/pkg/logger"
)

// HandlerConfig configures a Handler
type HandlerConfig struct {
	AllowedOrigins []string
	WriteTimeout   time.Duration
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// BaseContext outlives individual requests and is cancelled on
	// shutdown. Websocket loops run under it.
	BaseContext context.Context
}

// Handler holds all HTTP handlers
type Handler struct {
	crowdService *service.CrowdService
	upgrader     websocket.Upgrader
	wsOptions    transport.WebSocketOptions
	metrics      http.Handler
	baseCtx      context.Context
	logger       *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(crowdService *service.CrowdService, cfg HandlerConfig, log *logger.Logger) *Handler {
	baseCtx := cfg.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	return &Handler{
		crowdService: crowdService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		wsOptions: transport.WebSocketOptions{WriteWait: cfg.WriteTimeout},
		metrics:   cfg.Metrics,
		baseCtx:   baseCtx,
		logger:    log,
	}
}

// Routes sets up all routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, http.StatusNotFound, "not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed", r.Method)
	})

	// Health check
	r.Get("/health", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api/crowd", func(r chi.Router) {
		r.Get("/player", h.Player)
		r.Get("/participant", h.Participant)
		r.Get("/list", h.List)
	})

	return r
}

// Health handles health check requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, models.HealthResponse{
		Status: "ok",
		Crowds: len(h.crowdService.List()),
	})
}

// List returns every live crowd
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	summaries := h.crowdService.List()

	entries := make([]models.CrowdListEntry, 0, len(summaries))
	for _, s := range summaries {
		entries = append(entries, models.CrowdListEntry{
			CrowdID:          s.ID.String(),
			Name:             s.Name,
			StartedTime:      s.Started.UTC(),
			ParticipantCount: s.Participants,
		})
	}

	h.respondJSON(w, http.StatusOK, entries)
}

// Player upgrades the request and runs a player connection on it
func (h *Handler) Player(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.upgrade(w, r, "player")
	if !ok {
		return
	}
	h.crowdService.ServePlayer(h.baseCtx, conn)
}

// Participant upgrades the request and runs a participant connection on it
func (h *Handler) Participant(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.upgrade(w, r, "participant")
	if !ok {
		return
	}
	h.crowdService.ServeParticipant(h.baseCtx, conn)
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request, role string) (transport.Conn, bool) {
	requestID := GetRequestID(r.Context())

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an error response.
		h.logger.Warn("Websocket upgrade failed",
			logger.F("role", role),
			logger.Err(err),
			logger.F("request_id", requestID),
		)
		return nil, false
	}

	h.logger.Info("Websocket connected",
		logger.F("role", role),
		logger.F("user_agent", r.UserAgent()),
		logger.F("remote_addr", r.RemoteAddr),
		logger.F("request_id", requestID),
	)
	return transport.NewWebSocketConn(ws, h.wsOptions), true
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, origin := range allowed {
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, candidate := range allowed {
			if strings.EqualFold(origin, candidate) {
				return true
			}
		}
		return false
	}
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, status int, errorMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:   errorMsg,
		Message: message,
	})
}
