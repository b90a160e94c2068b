package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
)

// contextKey is a type for context keys
type contextKey string

// TraceIDContextKey is the key for storing trace ID in context
const TraceIDContextKey contextKey = "trace_id"

// processLog is the logger installed by InitializeLogger and the log file it
// owns, if any.
var processLog struct {
	once   sync.Once
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// InitializeLogger creates the process logger and installs it as the slog
// default. Later calls return the first logger unchanged.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	processLog.once.Do(func() {
		var logger *slog.Logger
		if logger, err = NewLogger(cfg, os.Stdout); err == nil {
			processLog.logger = logger
			slog.SetDefault(logger)
		}
	})
	return processLog.logger, err
}

// GetLogger returns the process logger, or slog.Default before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	if processLog.logger == nil {
		return slog.Default()
	}
	return processLog.logger
}

// NewLogger builds a logger for cfg. Console output goes to console; the
// spendreport command passes stderr so report data on stdout stays clean.
// Every record carries the trace_id of its context when one is set.
func NewLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, error) {
	out, err := logOutput(cfg, console)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{AddSource: cfg.Development, Level: ParseLogLevel(cfg.Level)}

	var handler slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(correlationHandler{handler}), nil
}

// logOutput resolves cfg.Output: "console", "file" or "both". Unknown values
// fall back to the console.
func logOutput(cfg config.LoggingConfig, console io.Writer) (io.Writer, error) {
	mode := strings.ToLower(cfg.Output)
	if mode != "file" && mode != "both" {
		return console, nil
	}

	file, err := openLogFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	swapLogFile(file)

	if mode == "both" {
		return io.MultiWriter(console, file), nil
	}
	return file, nil
}

// correlationHandler stamps records with the request or run trace ID,
// preferring the one set by WithTraceID over an active span's ID.
type correlationHandler struct {
	slog.Handler
}

func (h correlationHandler) Handle(ctx context.Context, r slog.Record) error {
	id := GetTraceID(ctx)
	if id == "" {
		id = TraceIDFromContext(ctx)
	}
	if id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h correlationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return correlationHandler{h.Handler.WithAttrs(attrs)}
}

func (h correlationHandler) WithGroup(name string) slog.Handler {
	return correlationHandler{h.Handler.WithGroup(name)}
}

// ParseLogLevel maps a configured level name to a slog.Level. "warning" is
// accepted for warn; anything unrecognised is info.
func ParseLogLevel(level string) slog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// WithTraceID returns ctx carrying traceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID returns the trace ID stored by WithTraceID, or ""
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDContextKey).(string)
	return id
}

// CloseLogFile closes the log file opened for "file" or "both" output.
func CloseLogFile() error {
	return swapLogFile(nil)
}

// ResetLoggerForTesting drops the process logger so InitializeLogger can run
// again.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	processLog.logger = nil
	processLog.once = sync.Once{}
}

// swapLogFile replaces the owned log file, closing the previous one.
func swapLogFile(file *os.File) error {
	processLog.mu.Lock()
	defer processLog.mu.Unlock()

	prev := processLog.file
	processLog.file = file
	if prev == nil {
		return nil
	}
	return prev.Close()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", path, err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}
