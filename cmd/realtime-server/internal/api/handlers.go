// Package api provides the websocket endpoint and HTTP handlers for the
// realtime server.
package api

import (
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/coregx/realtime"
	"github.com/coregx/realtime/adapters/gorillaws"
	"github.com/coregx/realtime/model"
)

// Handler holds dependencies for the server endpoints.
type Handler struct {
	broker   *realtime.Broker
	logger   realtime.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new API handler.
func NewHandler(broker *realtime.Broker, logger realtime.Logger) *Handler {
	return &Handler{
		broker: broker,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the fronting gateway.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// HandleWebSocket handles GET /ws.
//
// Identity comes from the X-User-ID / X-User-Role headers set by the fronting
// auth layer; the broker trusts them. The handler registers the connection,
// pumps inbound frames into the broker, and removes the connection when the
// read loop ends for any reason.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		userID = "anonymous"
	}
	userRole := r.Header.Get("X-User-Role")
	if userRole == "" {
		userRole = "observer"
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("Websocket upgrade failed for user %s: %v", userID, err)
		return
	}

	transport := gorillaws.New(ws)
	conn := realtime.NewConnection(transport, userID, userRole)
	h.broker.AddConnection(conn)

	defer func() {
		h.broker.RemoveConnection(conn.ID())
		_ = conn.Close(realtime.CloseNormal, "connection closed")
	}()

	for {
		data, err := transport.ReadMessage()
		if err != nil {
			h.logger.Debugf("Read loop ended for connection %s: %v", conn.ID(), err)
			return
		}
		h.broker.HandleClientMessage(r.Context(), conn, data)
	}
}

// PublishRequest represents a publish injection from business logic.
type PublishRequest struct {
	model.Envelope
	Sender string `json:"sender"`
}

// HandlePublish handles POST /api/v1/publish.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	if err := req.Envelope.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), realtime.ErrCodeValidation)
		return
	}

	sender := req.Sender
	if sender == "" {
		sender = "system"
	}

	m := req.Envelope.Message(sender)
	if err := h.broker.Publish(r.Context(), m); err != nil {
		h.logger.Errorf("Failed to publish message: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to publish message", "PUBLISH_ERROR")
		return
	}

	h.respondJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: map[string]string{"id": m.ID}})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}
	h.respondJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: h.broker.ConnectionStats()})
}

// HandleArchive handles GET /api/v1/archive?channel=<name>&limit=<n>.
// It returns the retained ack-required messages of a channel, newest first.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		h.respondError(w, http.StatusBadRequest, "channel is required", realtime.ErrCodeValidation)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	messages, err := h.broker.ArchivedMessages(r.Context(), channel, limit)
	if err != nil {
		if realtime.IsNoData(err) {
			h.respondJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: []model.Message{}})
			return
		}
		h.logger.Errorf("Failed to load archive for %s: %v", channel, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to load archive", realtime.ErrCodeDatabase)
		return
	}

	h.respondJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: messages})
}

// HandleHealth handles GET /api/v1/health.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	h.respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
