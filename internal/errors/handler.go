package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// Problem type URIs
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeMethodNotAllowed = "/errors/method-not-allowed"

	TypeNoData        = "/errors/data/no-data"
	TypeInvalidUpload = "/errors/data/invalid-upload"
	TypeInvalidSource = "/errors/data/invalid-source"
	TypeExportFailed  = "/errors/export/failed"
)

const internalDetail = "An unexpected error occurred while processing your request"

// problemTypeByCode maps APIError codes onto problem types. Unlisted codes
// keep their status with the internal type.
var problemTypeByCode = map[string]string{
	CodeValidationFailed:     TypeValidation,
	CodeInvalidRequest:       TypeValidation,
	"INVALID_JSON":           TypeValidation,
	"INVALID_PARAMETER":      TypeValidation,
	"UNSUPPORTED_MEDIA_TYPE": TypeValidation,
	CodeNotFound:             TypeNotFound,
	"TABLE_NOT_FOUND":        TypeNotFound,
	CodeNoData:               TypeNoData,
	CodeInvalidUpload:        TypeInvalidUpload,
	CodeRateLimited:          TypeRateLimit,
}

// ErrorHandler writes every failure as an RFC 7807 problem
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates the handler. includeStack adds stack traces to
// 5xx problems and should only be set in development.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and writes its problem response. A nil err writes
// nothing.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.LogAttrs(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))

	problem.WithExtension("trace_id", reqID)
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", string(debug.Stack()))
	}
	problem.Write(w)
}

// ErrorToProblem classifies err. Cancellation and deadlines come first so a
// timed-out aggregation is never reported as a data error.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := r.URL.Path

	var (
		apiErr   *APIError
		appErr   *AppError
		maxBytes *http.MaxBytesError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", instance)

	case errors.As(err, &apiErr):
		return fromAPIError(apiErr, instance)

	case errors.As(err, &maxBytes):
		return NewProblemDetails(http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large",
			fmt.Sprintf("The request body exceeds the limit of %d bytes", maxBytes.Limit), instance)

	case errors.Is(err, domain.ErrInvalidParameter):
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Invalid Parameter", err.Error(), instance).
			WithExtension("error_code", "INVALID_PARAMETER")

	case errors.As(err, &appErr):
		return fromAppError(appErr, instance)

	default:
		return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error", internalDetail, instance)
	}
}

func fromAPIError(e *APIError, instance string) *ProblemDetails {
	problemType, ok := problemTypeByCode[e.ErrorCode]
	if !ok {
		problemType = TypeInternal
	}
	problem := NewProblemDetails(e.StatusCode, problemType, http.StatusText(e.StatusCode), e.Message, instance).
		WithExtension("error_code", e.ErrorCode)
	if e.Details != nil {
		problem.WithExtension("details", e.Details)
	}
	return problem
}

// fromAppError maps loader, storage and export failures. Messages of 5xx
// problems are replaced because they may carry filesystem paths.
func fromAppError(e *AppError, instance string) *ProblemDetails {
	status, problemType, title := http.StatusInternalServerError, TypeInternal, "Internal Server Error"
	switch e.Type {
	case ErrTypeValidation, ErrTypeParsing:
		status, problemType, title = http.StatusUnprocessableEntity, TypeInvalidSource, "Invalid Data Source"
	case ErrTypeNotFound:
		status, problemType, title = http.StatusNotFound, TypeNotFound, "Resource Not Found"
	case ErrTypeExport:
		problemType, title = TypeExportFailed, "Export Failed"
	}

	if status >= http.StatusInternalServerError {
		return NewProblemDetails(status, problemType, title, internalDetail, instance).
			WithExtension("error_code", string(e.Type))
	}
	problem := NewProblemDetails(status, problemType, title, e.Message, instance).
		WithExtension("error_code", string(e.Type))
	if len(e.Context) > 0 {
		problem.WithExtension("context", e.Context)
	}
	return problem
}

// HandlePanic logs a recovered panic with its stack and writes a 500
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())
	stack := string(debug.Stack())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", stack))

	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred", r.URL.Path).
		WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprint(recovered))
		problem.WithExtension("stack", stack)
	}
	problem.Write(w)
}

// NotFound is the router's 404 handler
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context())).
		Write(w)
}

// MethodNotAllowed is the router's 405 handler
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewProblemDetails(http.StatusMethodNotAllowed, TypeMethodNotAllowed, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context())).
		Write(w)
}
