package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

const (
	statusReady    = "ready"
	statusNotReady = "not_ready"
)

// DatasetSource reports on the active dataset
type DatasetSource interface {
	Dataset() (*domain.Dataset, error)
}

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService answers the probe endpoints. The dashboard is ready once a
// dataset is loaded and its upload and report directories are usable.
type HealthService struct {
	paths     *config.Paths
	data      DatasetSource
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the body of every probe response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth is one readiness check
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats is the system part of GET /api/v1/stats
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	DatasetRecords   int     `json:"dataset_records"`
	WebSocketClients int     `json:"websocket_clients"`
	Goroutines       int     `json:"goroutines"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service. paths and hub may be nil.
func NewHealthService(paths *config.Paths, data DatasetSource, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		paths:     paths,
		data:      data,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

func (hs *HealthService) status(s string) HealthStatus {
	return HealthStatus{Status: s, Timestamp: time.Now(), Version: contracts.Version}
}

// HealthCheck always reports ok while the process serves requests
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check", slog.Duration("uptime", time.Since(hs.startTime)))
	return hs.status("ok")
}

// ReadinessCheck runs the dataset, storage and websocket checks. Any check
// that is not ready makes the whole response not_ready.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := hs.status(statusReady)
	status.Services = map[string]ServiceHealth{
		"dataset":   hs.datasetCheck(),
		"storage":   hs.storageCheck(),
		"websocket": hs.websocketCheck(),
	}

	for name, check := range status.Services {
		if check.Status == statusReady {
			continue
		}
		status.Status = statusNotReady
		hs.logger.WarnContext(ctx, "service not ready",
			slog.String("service", name),
			slog.String("message", check.Message))
	}
	return status
}

// LivenessCheck reports alive with a small runtime snapshot
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	status := hs.status("alive")
	status.Runtime = map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	return status
}

func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if ds, err := hs.data.Dataset(); err == nil {
		stats.DatasetRecords = ds.Len()
	}
	if hs.hub != nil {
		stats.WebSocketClients = hs.hub.ClientCount()
	}
	return stats
}

func (hs *HealthService) datasetCheck() ServiceHealth {
	ds, err := hs.data.Dataset()
	if err != nil {
		return ServiceHealth{Status: statusNotReady, Message: err.Error()}
	}
	return ServiceHealth{
		Status:  statusReady,
		Message: fmt.Sprintf("%d records from %s (%d rows dropped)", ds.Len(), ds.Source, ds.Report.TotalDropped()),
		Uptime:  time.Since(ds.LoadedAt).Round(time.Second).String(),
	}
}

// storageCheck needs the report directory for exports and the upload
// directory for the archive.
func (hs *HealthService) storageCheck() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: statusReady, Message: "no directories configured"}
	}
	for _, dir := range []struct{ name, path string }{
		{"report", hs.paths.ReportsDir},
		{"upload", hs.paths.UploadsDir},
	} {
		info, err := os.Stat(dir.path)
		if err != nil {
			return ServiceHealth{Status: statusNotReady, Message: fmt.Sprintf("%s directory not accessible: %v", dir.name, err)}
		}
		if !info.IsDir() {
			return ServiceHealth{Status: statusNotReady, Message: fmt.Sprintf("%s path is not a directory: %s", dir.name, dir.path)}
		}
	}
	return ServiceHealth{Status: statusReady}
}

func (hs *HealthService) websocketCheck() ServiceHealth {
	check := ServiceHealth{Status: statusReady, Uptime: time.Since(hs.startTime).Round(time.Second).String()}
	if hs.hub != nil {
		check.Message = fmt.Sprintf("%d clients connected", hs.hub.ClientCount())
	}
	return check
}

// GetDetailedHealth combines every probe with stats and version
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     hs.SystemStats(ctx),
		"version":   hs.Version(),
	}
}
