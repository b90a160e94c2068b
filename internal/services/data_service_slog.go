package services

import (
	"context"
	"log/slog"
)

// logDataError logs a data service failure. The trace ID is added by the
// infrastructure handler when the context carries one.
func logDataError(ctx context.Context, logger *slog.Logger, action, message string, attrs ...slog.Attr) {
	allAttrs := []slog.Attr{
		slog.String("action", action),
	}
	allAttrs = append(allAttrs, attrs...)

	logger.LogAttrs(ctx, slog.LevelError, message, allAttrs...)
}
