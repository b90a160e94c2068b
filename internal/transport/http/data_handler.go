package http

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	apierrors "github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/middleware"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/services"
	apiv1 "github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/api/v1"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

const maxTopN = 10000

// DataHandler serves the analytics, report, export and upload routes
type DataHandler struct {
	service      AnalyticsService
	validator    *middleware.Validator
	analysis     config.AnalysisConfig
	maxUpload    int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a data handler. analysis supplies the default top-N
// sizes; maxUpload caps dataset uploads in bytes.
func NewDataHandler(service AnalyticsService, validator *middleware.Validator, analysis config.AnalysisConfig, maxUpload int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		validator:    validator,
		analysis:     analysis,
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api/v1 routes
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/summary", h.GetSummary)
	r.Get("/spend/period", h.GetSpendByPeriod)
	r.Get("/spend/dimension/{dimension}", h.GetSpendByDimension)
	r.Get("/top/{dimension}", h.GetTopEntities)
	r.Get("/concentration", h.GetConcentration)

	r.Route("/metrics", func(r chi.Router) {
		r.Get("/po", h.GetPOMetrics)
		r.Get("/category", h.GetCategoryMetrics)
		r.Get("/geographic", h.GetGeographicMetrics)
		r.Get("/{dimension}", h.GetEntityMetrics)
	})

	r.Get("/consolidation", h.GetConsolidation)
	r.Get("/consolidation/{subcategory}/suppliers", h.GetSupplierBreakdown)
	r.Get("/multi/{primary}/{secondary}", h.GetMultiDimension)
	r.Get("/regions", h.GetRegions)
	r.Get("/suppliers/search", h.SearchSuppliers)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "application/json"))
		r.Post("/reports", h.BuildReport)
		r.Post("/exports", h.Export)
	})

	r.With(middleware.MaxBodySize(h.maxUpload)).Post("/dataset", h.UploadDataset)

	return r
}

// dataResponse wraps every successful analytics payload
type dataResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Count  *int        `json:"count,omitempty"`
}

func respond(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, dataResponse{Status: "success", Data: data})
}

func respondList(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, dataResponse{Status: "success", Data: data, Count: &count})
}

// fail maps service errors onto API errors and writes the problem response
func (h *DataHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoData):
		err = apierrors.ErrNoData
	case errors.Is(err, services.ErrTableNotFound):
		err = apierrors.NewWithDetails(http.StatusNotFound, "TABLE_NOT_FOUND", "Report table not found", err.Error())
	}
	h.errorHandler.HandleError(w, r, err)
}

func (h *DataHandler) filters(r *http.Request) (domain.FilterSpec, error) {
	req, err := h.validator.Filters(r)
	if err != nil {
		return domain.FilterSpec{}, err
	}
	return req.ToFilterSpec()
}

func dimensionParam(r *http.Request, name string) (domain.Dimension, error) {
	return domain.ParseDimension(chi.URLParam(r, name))
}

// GetSummary handles GET /summary
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), spec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, summary)
}

// GetSpendByPeriod handles GET /spend/period?granularity=month
func (h *DataHandler) GetSpendByPeriod(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	g, err := domain.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.service.SpendByPeriod(r.Context(), spec, g)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, resp, len(resp.Series))
}

// GetSpendByDimension handles GET /spend/dimension/{dimension}
func (h *DataHandler) GetSpendByDimension(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := dimensionParam(r, "dimension")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	series, err := h.service.SpendByDimension(r.Context(), spec, d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, series, len(series))
}

// GetTopEntities handles GET /top/{dimension}?n=20. State dimensions default
// to the configured top-N states, everything else to top-N suppliers.
func (h *DataHandler) GetTopEntities(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := dimensionParam(r, "dimension")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	def := h.analysis.TopNSuppliers
	if d == domain.DimensionSupplierState || d == domain.DimensionShipToState {
		def = h.analysis.TopNStates
	}
	n, err := middleware.Query(r).Int("n", 1, maxTopN, def)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	series, err := h.service.TopEntities(r.Context(), spec, d, n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, series, len(series))
}

// GetConcentration handles GET /concentration?n=20
func (h *DataHandler) GetConcentration(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := middleware.Query(r).Int("n", 1, maxTopN, h.analysis.TopNSuppliers)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.service.Concentration(r.Context(), spec, n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, c)
}

// GetEntityMetrics handles GET /metrics/{dimension}
func (h *DataHandler) GetEntityMetrics(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := dimensionParam(r, "dimension")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	metrics, err := h.service.EntityMetrics(r.Context(), spec, d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, metrics, len(metrics))
}

// GetPOMetrics handles GET /metrics/po
func (h *DataHandler) GetPOMetrics(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	metrics, err := h.service.POMetrics(r.Context(), spec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, metrics)
}

// GetCategoryMetrics handles GET /metrics/category
func (h *DataHandler) GetCategoryMetrics(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	metrics, err := h.service.CategoryMetrics(r.Context(), spec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, metrics, len(metrics))
}

// GetGeographicMetrics handles GET /metrics/geographic
func (h *DataHandler) GetGeographicMetrics(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	metrics, err := h.service.GeographicMetrics(r.Context(), spec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, metrics, len(metrics))
}

// GetRegions handles GET /regions
func (h *DataHandler) GetRegions(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	regions, err := h.service.RegionSummaries(r.Context(), spec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, regions, len(regions))
}

// GetConsolidation handles GET /consolidation?min_suppliers=&min_spend=&rate=.
// Absent parameters use the configured analysis defaults.
func (h *DataHandler) GetConsolidation(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := middleware.Query(r)
	minSuppliers, err := q.Int("min_suppliers", 1, math.MaxInt32, 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	minSpend, err := q.Float("min_spend", 0, math.MaxFloat64, 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rate, err := q.Float("rate", 0, 100, 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	opps, err := h.service.Consolidation(r.Context(), spec, minSuppliers, minSpend, rate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, opps, len(opps))
}

// pathParam returns a decoded URL parameter. chi matches on RawPath when the
// request carried escapes such as %2F, leaving those params still encoded.
func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}

// GetSupplierBreakdown handles GET /consolidation/{subcategory}/suppliers
func (h *DataHandler) GetSupplierBreakdown(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	subcategory, err := pathParam(r, "subcategory")
	if err != nil {
		h.fail(w, r, apierrors.ErrValidation("subcategory", "subcategory is not a valid path segment"))
		return
	}

	shares, err := h.service.SupplierBreakdown(r.Context(), spec, subcategory)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, shares, len(shares))
}

// GetMultiDimension handles GET /multi/{primary}/{secondary}?only_multi=true
func (h *DataHandler) GetMultiDimension(w http.ResponseWriter, r *http.Request) {
	spec, err := h.filters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	primary, err := dimensionParam(r, "primary")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	secondary, err := dimensionParam(r, "secondary")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	onlyMulti, err := middleware.Query(r).Bool("only_multi", false)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	members, err := h.service.MultiDimension(r.Context(), spec, primary, secondary, onlyMulti)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, members, len(members))
}

// SearchSuppliers handles GET /suppliers/search?q=
func (h *DataHandler) SearchSuppliers(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.SearchSuppliers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, names, len(names))
}

// BuildReport handles POST /reports
func (h *DataHandler) BuildReport(w http.ResponseWriter, r *http.Request) {
	opts, err := h.reportOptions(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report, err := h.service.BuildReport(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, report, len(report.Tables))
}

// Export handles POST /exports?format=csv|xlsx&table=. The file is built in
// memory first so a failure can still be reported as a problem response.
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	opts, err := h.reportOptions(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	file, err := h.service.Export(r.Context(), opts, r.URL.Query().Get("format"), r.URL.Query().Get("table"), &buf)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export download interrupted",
			slog.String("file", file.Filename),
			slog.String("error", err.Error()),
			slog.String("request_id", chimw.GetReqID(r.Context())))
	}
}

// UploadDataset handles POST /dataset with a multipart "file" part. The part
// is streamed to the service; oversized bodies fail with 413.
func (h *DataHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		h.fail(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.fail(w, r, maxErr)
				return
			}
			h.fail(w, r, apierrors.ErrValidation("file", "multipart field \"file\" is required"))
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		name := part.FileName()
		if name == "" {
			name = "upload.csv"
		}

		resp, err := h.service.Replace(r.Context(), name, part)
		part.Close()
		if err != nil {
			h.fail(w, r, err)
			return
		}

		h.logger.InfoContext(r.Context(), "dataset uploaded",
			slog.String("source", resp.Source),
			slog.Int("rows", resp.LoadReport.RowsKept),
			slog.String("request_id", chimw.GetReqID(r.Context())))
		respond(w, r, resp)
		return
	}
}

func (h *DataHandler) reportOptions(r *http.Request) (exporter.ReportOptions, error) {
	var req apiv1.ReportRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		return exporter.ReportOptions{}, err
	}

	reportType, err := domain.ParseReportType(req.Type)
	if err != nil {
		return exporter.ReportOptions{}, err
	}
	spec, err := req.Filters.ToFilterSpec()
	if err != nil {
		return exporter.ReportOptions{}, err
	}

	return exporter.ReportOptions{
		Type:         reportType,
		Filters:      spec,
		Columns:      req.Columns,
		GroupBy:      req.GroupBy,
		MinSuppliers: req.MinSuppliers,
		MinSpend:     req.MinSpend,
		RatePct:      req.RatePct,
	}, nil
}
