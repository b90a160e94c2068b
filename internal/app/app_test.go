package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/shared/testutil"
)

// testConfig returns a configuration rooted in a temp directory
func testConfig(t *testing.T, dataPath string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Data.Path = dataPath
	cfg.Telemetry.MetricsEnabled = true
	cfg.Telemetry.TracingEnabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.WebSocketHub.Stop()
		a.Memo.Stop()
		_ = a.OTelProviders.Shutdown(context.Background())
	})
	return a
}

func serve(a *Application, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func TestNewApplication(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""))

	assert.NotNil(t, a.Router)
	assert.NotNil(t, a.Server)
	assert.NotNil(t, a.DataService)
	assert.NotNil(t, a.HealthService)
	assert.NotNil(t, a.WebSocketHub)
	assert.NotNil(t, a.Files)
	assert.NotNil(t, a.Metrics)
	assert.Equal(t, "127.0.0.1:0", a.Server.Addr)

	assert.DirExists(t, a.Paths.UploadsDir)
	assert.DirExists(t, a.Paths.ReportsDir)
	assert.False(t, a.DataService.HasData())
}

func TestNewApplication_NilConfig(t *testing.T) {
	_, err := NewApplication(nil, nil)
	assert.Error(t, err)
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, testConfig(t, testutil.WriteFile(t, "po.csv", testutil.ScenarioCSV)))
	require.NoError(t, a.LoadInitialDataset(context.Background()))
	require.True(t, a.DataService.HasData())

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK, wantBody: `"ok"`},
		{name: "ready", method: http.MethodGet, path: "/healthz/ready", wantStatus: http.StatusOK, wantBody: `"ready"`},
		{name: "live", method: http.MethodGet, path: "/healthz/live", wantStatus: http.StatusOK, wantBody: `"alive"`},
		{name: "version", method: http.MethodGet, path: "/version", wantStatus: http.StatusOK, wantBody: `"version"`},
		{name: "summary", method: http.MethodGet, path: "/api/v1/summary", wantStatus: http.StatusOK, wantBody: `"total_records":6`},
		{name: "top suppliers", method: http.MethodGet, path: "/api/v1/top/supplier?n=2", wantStatus: http.StatusOK, wantBody: `"key":"Acme"`},
		{name: "filtered summary", method: http.MethodGet, path: "/api/v1/summary?supplier=Iron%20Inc", wantStatus: http.StatusOK, wantBody: `"total_records":1`},
		{name: "stats", method: http.MethodGet, path: "/api/v1/stats", wantStatus: http.StatusOK, wantBody: `"cache"`},
		{name: "client log", method: http.MethodPost, path: "/api/v1/client-log", body: `{"message":"chart rendered"}`, wantStatus: http.StatusAccepted},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK, wantBody: "dataset_loads_total"},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nope", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodDelete, path: "/api/v1/summary", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			contentType := ""
			if tt.body != "" {
				body = strings.NewReader(tt.body)
				contentType = "application/json"
			}
			rec := serve(a, tt.method, tt.path, body, contentType)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Telemetry.MetricsEnabled = false
	a := newTestApp(t, cfg)

	rec := serve(a, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplication_NoDataset(t *testing.T) {
	a := newTestApp(t, testConfig(t, "missing/PO_Data.csv"))
	require.NoError(t, a.LoadInitialDataset(context.Background()))
	assert.False(t, a.DataService.HasData())

	rec := serve(a, http.MethodGet, "/healthz/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(a, http.MethodGet, "/api/v1/summary", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "NO_DATA", problem["error_code"])
}

func TestApplication_LoadInitialDataset_LatestUpload(t *testing.T) {
	a := newTestApp(t, testConfig(t, "missing/PO_Data.csv"))

	older := filepath.Join(a.Paths.UploadsDir, "old.csv")
	newer := filepath.Join(a.Paths.UploadsDir, "new.csv")
	require.NoError(t, os.WriteFile(older, []byte(testutil.POHeader+"\nPO-1,2024-01-01,Old Co,10,A,B,Open,TX,Austin,TX\n"), 0644))
	require.NoError(t, os.WriteFile(newer, []byte(testutil.ScenarioCSV), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	require.NoError(t, a.LoadInitialDataset(context.Background()))

	ds, err := a.DataService.Dataset()
	require.NoError(t, err)
	assert.Equal(t, 6, ds.Len())
}

func TestApplication_LoadInitialDataset_InvalidSource(t *testing.T) {
	a := newTestApp(t, testConfig(t, testutil.WriteFile(t, "bad.csv", "just,some,columns\n1,2,3\n")))

	err := a.LoadInitialDataset(context.Background())
	assert.Error(t, err)
	assert.False(t, a.DataService.HasData())
}

func TestApplication_UploadIsArchived(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "Q1 2024.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, testutil.ScenarioCSV)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := serve(a, http.MethodPost, "/api/v1/dataset", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, a.DataService.HasData())

	entries, err := os.ReadDir(a.Paths.UploadsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_Q1_2024.csv"))

	rec = serve(a, http.MethodGet, "/api/v1/summary", nil, "")
	assert.Contains(t, rec.Body.String(), `"total_records":6`)
}

func TestApplication_StartStop(t *testing.T) {
	a := newTestApp(t, testConfig(t, testutil.WriteFile(t, "po.csv", testutil.ScenarioCSV)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))
	require.NotEmpty(t, a.Addr())

	resp, err := http.Get("http://" + a.Addr() + "/healthz/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.Stop(context.Background()))

	_, err = http.Get("http://" + a.Addr() + "/healthz")
	assert.Error(t, err)
}
