package config

import "time"

// Application constants
const (
	// Application Info
	AppName = "procurement-analytics"

	// Server
	DefaultPort           = 8501
	DefaultRequestTimeout = 60 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Data source
	DefaultDataPath       = "data/PO_Data.csv"
	DefaultEncoding       = "utf-8-sig"
	DefaultMaxUploadBytes = 200 << 20 // 200MB
	DefaultMaxExportRows  = 1000000

	// Consolidation analysis
	DefaultMinSuppliersForConsolidation = 3
	DefaultMinSpendForConsolidation     = 100000
	DefaultDiscountPercent              = 10

	// Top N configurations
	DefaultTopNSuppliers = 20
	DefaultTopNStates    = 10

	// Cache Settings
	DefaultCacheTTL             = 1 * time.Hour
	DefaultCacheMaxEntries      = 1024
	DefaultCacheCleanupInterval = 5 * time.Minute

	// File Paths (relative to the base directory)
	DefaultUploadsDir = "data/uploads"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"

	// API Endpoints
	APIBasePath       = "/api/v1"
	HealthEndpoint    = "/healthz"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
