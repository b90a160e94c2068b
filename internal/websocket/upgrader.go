package websocket

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
)

// NewUpgrader returns an upgrader that accepts requests without an Origin
// header, any origin when allowed contains "*", and otherwise only the
// listed origins
func NewUpgrader(cfg config.WebSocketConfig, allowed []string, logger *slog.Logger) *websocket.Upgrader {
	if logger == nil {
		logger = slog.Default()
	}
	allowAll := slices.Contains(allowed, "*")

	return &websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll || slices.Contains(allowed, origin) {
				return true
			}
			logger.WarnContext(r.Context(), "websocket origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", allowed))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			logger.ErrorContext(r.Context(), "websocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
}
