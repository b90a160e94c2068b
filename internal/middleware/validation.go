package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
	apiv1 "github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/api/v1"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// Validator validates API request structs using their validate tags
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a validator with the report_column, dimension and
// granularity tags registered
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	v.RegisterValidation("report_column", isReportColumn)
	v.RegisterValidation("dimension", isDimension)
	v.RegisterValidation("granularity", isGranularity)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate: v,
		logger:   logger.With(slog.String("component", "validation")),
	}
}

// Struct validates v and returns a VALIDATION_FAILED APIError listing every
// failed field
func (m *Validator) Struct(v interface{}) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Drop the top-level struct name: "ReportRequest.filters.start" -> "filters.start"
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, apierrors.ValidationError{
			Field:   field,
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// DecodeJSON decodes the request body into v and validates it. Oversized
// bodies surface as *http.MaxBytesError.
func (m *Validator) DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return apierrors.New(http.StatusBadRequest, "INVALID_JSON", "Request body is required")
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		m.logger.DebugContext(r.Context(), "invalid request body",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())))
		return apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_JSON",
			"Request body contains invalid JSON", err.Error())
	}

	return m.Struct(v)
}

// ContentTypeValidator ensures requests with a body have an allowed content type
func ContentTypeValidator(handler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				handler.HandleError(w, r, apierrors.New(
					http.StatusBadRequest,
					"MISSING_CONTENT_TYPE",
					"Content-Type header is required",
				))
				return
			}

			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			handler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, param)
	case "report_column":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(apiv1.ReportColumns, ", "))
	case "dimension":
		return fmt.Sprintf("%s must be a known dimension", field)
	case "granularity":
		return fmt.Sprintf("%s must be day, week, month, quarter or year", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// Custom validators

func isReportColumn(fl validator.FieldLevel) bool {
	return apiv1.IsReportColumn(fl.Field().String())
}

func isDimension(fl validator.FieldLevel) bool {
	_, err := domain.ParseDimension(fl.Field().String())
	return err == nil
}

func isGranularity(fl validator.FieldLevel) bool {
	_, err := domain.ParseGranularity(fl.Field().String())
	return err == nil
}

// QueryParams reads typed query parameters, returning a VALIDATION_FAILED
// APIError for malformed or out-of-range values
type QueryParams struct {
	r *http.Request
}

// Query wraps the query string of r
func Query(r *http.Request) QueryParams {
	return QueryParams{r: r}
}

// Int parses param, returning def when it is absent
func (q QueryParams) Int(param string, min, max, def int) (int, error) {
	value := strings.TrimSpace(q.r.URL.Query().Get(param))
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a valid integer", param))
	}
	if n < min || n > max {
		return 0, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max))
	}
	return n, nil
}

// Float parses param, returning def when it is absent
func (q QueryParams) Float(param string, min, max, def float64) (float64, error) {
	value := strings.TrimSpace(q.r.URL.Query().Get(param))
	if value == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a number", param))
	}
	if f < min || f > max {
		return 0, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %g and %g", param, min, max))
	}
	return f, nil
}

// Bool parses param, returning def when it is absent
func (q QueryParams) Bool(param string, def bool) (bool, error) {
	value := strings.TrimSpace(q.r.URL.Query().Get(param))
	if value == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, apierrors.ErrValidation(param, fmt.Sprintf("%s must be true or false", param))
	}
	return b, nil
}

// List returns every value of param, splitting comma-separated values and
// dropping blanks. Values containing commas are double-quoted, see
// domain.SplitValues.
func (q QueryParams) List(param string) []string {
	var out []string
	for _, raw := range q.r.URL.Query()[param] {
		out = append(out, domain.SplitValues(raw)...)
	}
	return out
}

// Filters reads the shared filter parameters into a validated FilterRequest
func (m *Validator) Filters(r *http.Request) (apiv1.FilterRequest, error) {
	q := Query(r)
	req := apiv1.FilterRequest{
		Start:         strings.TrimSpace(r.URL.Query().Get("start")),
		End:           strings.TrimSpace(r.URL.Query().Get("end")),
		Categories:    q.List("category"),
		SubCategories: q.List("subcategory"),
		States:        q.List("state"),
		Cities:        q.List("city"),
		Suppliers:     q.List("supplier"),
		Statuses:      q.List("status"),
	}
	if err := m.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}
