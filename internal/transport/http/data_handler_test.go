package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	apierrors "github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/middleware"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/services"
	apiv1 "github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/api/v1"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

var testAnalysis = config.AnalysisConfig{
	MinSuppliersForConsolidation: 3,
	MinSpendForConsolidation:     50000,
	DefaultDiscountPercent:       10,
	TopNSuppliers:                20,
	TopNStates:                   10,
}

func newDataRouter(t *testing.T, svc AnalyticsService, maxUpload int64) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)
	h := NewDataHandler(svc, middleware.NewValidator(logger), testAnalysis, maxUpload, logger, errorHandler)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/v1", h.Routes())
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestDataHandler_Summary(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "success", wantStatus: http.StatusOK},
		{name: "no dataset", err: services.ErrNoData, wantStatus: http.StatusNotFound, wantCode: "NO_DATA"},
		{name: "unexpected failure", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalyticsService)
			resp := apiv1.SummaryResponse{Summary: domain.Summary{TotalSpend: 1500, TotalRecords: 3}, Source: "po.csv"}
			svc.On("Summary", mock.Anything, domain.FilterSpec{}).Return(resp, tt.err)

			rec := httptest.NewRecorder()
			newDataRouter(t, svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.err == nil {
				assert.Equal(t, "success", body["status"])
				data := body["data"].(map[string]interface{})
				assert.Equal(t, "po.csv", data["source"])
			} else if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDataHandler_FiltersFromQuery(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("Summary", mock.Anything, mock.MatchedBy(func(spec domain.FilterSpec) bool {
		return spec.Start != nil && spec.Start.Format("2006-01-02") == "2024-01-01" &&
			spec.End == nil &&
			assert.ObjectsAreEqual([]string{"IT", "Facilities"}, spec.Categories) &&
			assert.ObjectsAreEqual([]string{"TX", "CA"}, spec.SupplierStates) &&
			assert.ObjectsAreEqual([]string{"Acme"}, spec.Suppliers)
	})).Return(apiv1.SummaryResponse{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary?start=2024-01-01&category=IT,Facilities&state=tx&state=ca&supplier=Acme", nil)
	rec := httptest.NewRecorder()
	newDataRouter(t, svc, 1024).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDataHandler_InvalidFilters(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "bad start date", query: "start=2024-13-01"},
		{name: "bad end format", query: "end=01/02/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalyticsService)
			rec := httptest.NewRecorder()
			newDataRouter(t, svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summary?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_FAILED", decodeBody(t, rec)["error_code"])
			svc.AssertNotCalled(t, "Summary", mock.Anything, mock.Anything)
		})
	}
}

func TestDataHandler_TopEntities(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		dimension  domain.Dimension
		n          int
		wantStatus int
		wantCode   string
	}{
		{name: "explicit n", path: "/api/v1/top/supplier?n=5", dimension: domain.DimensionSupplier, n: 5, wantStatus: http.StatusOK},
		{name: "supplier default", path: "/api/v1/top/supplier", dimension: domain.DimensionSupplier, n: 20, wantStatus: http.StatusOK},
		{name: "state default", path: "/api/v1/top/ship_to", dimension: domain.DimensionShipToState, n: 10, wantStatus: http.StatusOK},
		{name: "unknown dimension", path: "/api/v1/top/colour", wantStatus: http.StatusBadRequest, wantCode: "INVALID_PARAMETER"},
		{name: "n below range", path: "/api/v1/top/supplier?n=0", wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "n not a number", path: "/api/v1/top/supplier?n=ten", wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalyticsService)
			series := domain.RankedSeries{{Key: "Acme", Amount: 900}, {Key: "Globex", Amount: 100}}
			if tt.dimension != "" {
				svc.On("TopEntities", mock.Anything, domain.FilterSpec{}, tt.dimension, tt.n).Return(series, nil)
			}

			rec := httptest.NewRecorder()
			newDataRouter(t, svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			} else {
				assert.Equal(t, float64(2), body["count"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDataHandler_SpendByPeriod(t *testing.T) {
	svc := new(MockAnalyticsService)
	resp := apiv1.PeriodResponse{
		Granularity: domain.GranularityQuarter,
		Series:      domain.PeriodSeries{{Period: "2024Q1", Amount: 10}, {Period: "2024Q2", Amount: 20}},
	}
	svc.On("SpendByPeriod", mock.Anything, domain.FilterSpec{}, domain.GranularityQuarter).Return(resp, nil)

	rec := httptest.NewRecorder()
	newDataRouter(t, svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/spend/period?granularity=Q", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])

	rec = httptest.NewRecorder()
	newDataRouter(t, svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/spend/period?granularity=fortnight", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestDataHandler_Consolidation(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		minSuppliers int
		minSpend     float64
		rate         float64
		wantStatus   int
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK},
		{name: "explicit thresholds", query: "?min_suppliers=4&min_spend=2500&rate=12.5", minSuppliers: 4, minSpend: 2500, rate: 12.5, wantStatus: http.StatusOK},
		{name: "rate above 100", query: "?rate=150", wantStatus: http.StatusBadRequest},
		{name: "negative spend", query: "?min_spend=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalyticsService)
			if tt.wantStatus == http.StatusOK {
				svc.On("Consolidation", mock.Anything, domain.FilterSpec{}, tt.minSuppliers, tt.minSpend, tt.rate).
					Return([]domain.ConsolidationOpportunity{{SubCategory: "Janitorial", Suppliers: 5, TotalSpend: 80000}}, nil)
			}

			rec := httptest.NewRecorder()
			newDataRouter(t, svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/consolidation"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestDataHandler_SupplierBreakdown(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		subcategory string
	}{
		{name: "space", path: "/api/v1/consolidation/Office%20Supplies/suppliers", subcategory: "Office Supplies"},
		{name: "encoded slash", path: "/api/v1/consolidation/IT%2FTelecom/suppliers", subcategory: "IT/Telecom"},
		{name: "encoded percent", path: "/api/v1/consolidation/100%25%20Cotton/suppliers", subcategory: "100% Cotton"},
		{name: "encoded percent and slash", path: "/api/v1/consolidation/50%25%2F50%20Blend/suppliers", subcategory: "50%/50 Blend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalyticsService)
			svc.On("SupplierBreakdown", mock.Anything, domain.FilterSpec{}, tt.subcategory).
				Return([]domain.SupplierShare{}, nil)

			rec := httptest.NewRecorder()
			newDataRouter(t, svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, float64(0), decodeBody(t, rec)["count"])
			svc.AssertExpectations(t)
		})
	}
}

func TestDataHandler_MultiDimensionAndSearch(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("MultiDimension", mock.Anything, domain.FilterSpec{}, domain.DimensionSupplier, domain.DimensionSupplierState, true).
		Return([]domain.MultiDimensionMember{}, nil)
	svc.On("SearchSuppliers", mock.Anything, "acme").Return([]string{"Acme Corp", "ACME Supply"}, nil)
	router := newDataRouter(t, svc, 1024)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/multi/supplier/state?only_multi=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/multi/supplier/state?only_multi=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/suppliers/search?q=acme", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])

	svc.AssertExpectations(t)
}

func TestDataHandler_BuildReport(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantCode    string
	}{
		{name: "supplier analysis", contentType: "application/json", body: `{"type":"supplier_analysis","filters":{"states":["tx"]}}`, wantStatus: http.StatusOK},
		{name: "unknown type", contentType: "application/json", body: `{"type":"quarterly"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "unknown column", contentType: "application/json", body: `{"type":"custom","columns":["supplier","colour"]}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "malformed json", contentType: "application/json", body: `{"type":`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_JSON"},
		{name: "wrong content type", contentType: "text/plain", body: `{"type":"custom"}`, wantStatus: http.StatusUnsupportedMediaType, wantCode: "UNSUPPORTED_MEDIA_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalyticsService)
			if tt.wantStatus == http.StatusOK {
				svc.On("BuildReport", mock.Anything, mock.MatchedBy(func(opts exporter.ReportOptions) bool {
					return opts.Type == domain.ReportSupplierAnalysis &&
						assert.ObjectsAreEqual([]string{"TX"}, opts.Filters.SupplierStates)
				})).Return(&domain.Report{Type: domain.ReportSupplierAnalysis, Tables: []domain.Table{{Name: "Top Suppliers"}}}, nil)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			newDataRouter(t, svc, 1024).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			} else {
				assert.Equal(t, float64(1), body["count"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDataHandler_Export(t *testing.T) {
	t.Run("csv download", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		svc.On("Export", mock.Anything, mock.Anything, "csv", "0", mock.Anything).
			Run(func(args mock.Arguments) {
				io.WriteString(args.Get(4).(io.Writer), "supplier,amount\nAcme,900\n")
			}).
			Return(services.ExportFile{Filename: "supplier_analysis.csv", ContentType: "text/csv; charset=utf-8", Tables: 1}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/exports?format=csv&table=0", strings.NewReader(`{"type":"supplier_analysis"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		newDataRouter(t, svc, 1024).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "supplier_analysis.csv")
		assert.Equal(t, "supplier,amount\nAcme,900\n", rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("missing table", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		svc.On("Export", mock.Anything, mock.Anything, "csv", "Nope", mock.Anything).
			Return(services.ExportFile{}, services.ErrTableNotFound)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/exports?format=csv&table=Nope", strings.NewReader(`{"type":"executive_summary"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		newDataRouter(t, svc, 1024).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "TABLE_NOT_FOUND", decodeBody(t, rec)["error_code"])
	})
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename == "" {
		require.NoError(t, mw.WriteField(field, content))
	} else {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestDataHandler_UploadDataset(t *testing.T) {
	t.Run("file part is streamed to the service", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		var received string
		svc.On("Replace", mock.Anything, "q3.csv", mock.Anything).
			Run(func(args mock.Arguments) {
				b, _ := io.ReadAll(args.Get(2).(io.Reader))
				received = string(b)
			}).
			Return(apiv1.UploadResponse{Source: "q3.csv", LoadReport: domain.LoadReport{RowsRead: 1, RowsKept: 1}}, nil)

		body, contentType := multipartBody(t, "file", "q3.csv", "a,b\n1,2\n")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		newDataRouter(t, svc, 1<<20).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a,b\n1,2\n", received)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, "q3.csv", data["source"])
		svc.AssertExpectations(t)
	})

	t.Run("missing file part", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		body, contentType := multipartBody(t, "comment", "", "hello")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		newDataRouter(t, svc, 1<<20).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", decodeBody(t, rec)["error_code"])
		svc.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not multipart", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset", strings.NewReader("a,b"))
		req.Header.Set("Content-Type", "text/csv")
		rec := httptest.NewRecorder()
		newDataRouter(t, svc, 1<<20).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST", decodeBody(t, rec)["error_code"])
	})

	t.Run("invalid upload", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		svc.On("Replace", mock.Anything, "empty.csv", mock.Anything).
			Return(apiv1.UploadResponse{}, apierrors.InvalidUploadError(services.ErrEmptyUpload))

		body, contentType := multipartBody(t, "file", "empty.csv", "")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		newDataRouter(t, svc, 1<<20).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "INVALID_UPLOAD", decodeBody(t, rec)["error_code"])
	})
}
