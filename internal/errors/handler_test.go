package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/shared/testutil"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "no data api error",
			err:        ErrNoData,
			wantStatus: http.StatusNotFound,
			wantType:   TypeNoData,
			wantCode:   "NO_DATA",
		},
		{
			name:       "wrapped invalid upload",
			err:        fmt.Errorf("upload: %w", InvalidUploadError(fmt.Errorf("missing amount column"))),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeInvalidUpload,
			wantCode:   "INVALID_UPLOAD",
		},
		{
			name:       "domain invalid parameter",
			err:        fmt.Errorf("%w: n must be at least 1", domain.ErrInvalidParameter),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantCode:   "INVALID_PARAMETER",
		},
		{
			name:       "parsing app error",
			err:        NewParsingError("no header row", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeInvalidSource,
			wantCode:   "PARSING",
		},
		{
			name:       "not found app error",
			err:        NewNotFoundError("data source", nil),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "body too large",
			err:        &http.MaxBytesError{Limit: 10},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, ProblemContentType, rec.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/v1/summary", body["instance"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
			assert.True(t, logs.ContainsMessage("request failed"))
			assert.True(t, logs.ContainsAttr("component", "error_handler"))
		})
	}
}

func TestErrorHandler_NilError(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	handler.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, logs.Count())
	assert.Empty(t, rec.Body.String())
}

func TestErrorHandler_InternalDetailHidden(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	handler.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		NewStorageError("disk full at /var/secret", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/var/secret")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	rec := httptest.NewRecorder()
	handler.HandlePanic(rec, httptest.NewRequest(http.MethodPost, "/api/v1/dataset", nil), "nil map")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "nil map")
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	handler.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/summary", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "DELETE")
}

func TestErrorMiddleware_RecoversPanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected")
	})

	rec := httptest.NewRecorder()
	mw.Handler(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ProblemContentType, rec.Header().Get("Content-Type"))
	assert.True(t, logs.ContainsMessage("panic recovered"))
	assert.True(t, logs.ContainsAttr("status", http.StatusInternalServerError))
}

func TestErrorMiddleware_LogsStatus(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	mw.Handler(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?n=3", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, logs.ContainsAttr("status", http.StatusTeapot))
	assert.True(t, logs.ContainsAttr("query", "n=3"))
}

func TestAccessLevel(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		want   slog.Level
	}{
		{name: "dashboard request", path: "/api/v1/summary", status: http.StatusOK, want: slog.LevelInfo},
		{name: "readiness probe", path: "/healthz/ready", status: http.StatusOK, want: slog.LevelDebug},
		{name: "scrape", path: "/metrics", status: http.StatusOK, want: slog.LevelDebug},
		{name: "failing probe", path: "/healthz/ready", status: http.StatusServiceUnavailable, want: slog.LevelError},
		{name: "client error", path: "/api/v1/top/colour", status: http.StatusBadRequest, want: slog.LevelWarn},
		{name: "server error", path: "/api/v1/export", status: http.StatusInternalServerError, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accessLevel(tt.path, tt.status))
		})
	}
}
