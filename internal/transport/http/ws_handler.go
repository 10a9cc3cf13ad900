package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"climex/internal/config"
	ws "climex/internal/websocket"
)

// WSHandler upgrades connections onto the progress hub.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a websocket handler with buffer sizes from the
// configuration.
func NewWSHandler(hub *ws.Hub, cfg config.WebSocketConfig, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			// Read-only stage stream; any origin may subscribe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("handler", "ws")),
	}
}

// Handle upgrades GET /ws and hands the connection to the hub.
func (h *WSHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "websocket client connected",
		slog.String("remote_addr", r.RemoteAddr))
	ws.ServeWS(h.hub, conn, h.logger)
}
