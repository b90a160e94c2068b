package http

import (
	"log/slog"
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/middleware"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/websocket"
)

// WebSocketHandler upgrades dashboard connections and attaches them to the hub
type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader *gorilla.Upgrader
	cfg      config.WebSocketConfig
	logger   *slog.Logger
}

// NewWebSocketHandler creates a websocket handler. allowedOrigins is checked
// against the Origin header during the upgrade.
func NewWebSocketHandler(hub *websocket.Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		upgrader: websocket.NewUpgrader(cfg, allowedOrigins, logger),
		cfg:      cfg,
		logger:   logger.With(slog.String("handler", "websocket")),
	}
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		return
	}

	client := websocket.ServeWS(h.hub, websocket.WrapConn(conn), h.cfg, middleware.GetRequestID(r.Context()), h.logger)
	h.logger.DebugContext(r.Context(), "websocket upgraded",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}
