package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "SPEND"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains CORS and rate limiting configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	UploadsDir string `yaml:"uploads_dir" envconfig:"UPLOADS_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// DataConfig describes the purchase-order source and its column layout.
// DATA_PATH is honored without the SPEND_DATA_ prefix.
type DataConfig struct {
	Path           string        `yaml:"path" envconfig:"DATA_PATH"`
	Encoding       string        `yaml:"encoding" envconfig:"ENCODING"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	MaxExportRows  int           `yaml:"max_export_rows" envconfig:"MAX_EXPORT_ROWS"`
	Columns        ColumnsConfig `yaml:"columns" envconfig:"COLUMNS"`
}

// ColumnsConfig maps semantic fields to source header names.
type ColumnsConfig struct {
	Date             string `yaml:"date" envconfig:"DATE_COLUMN"`
	Supplier         string `yaml:"supplier" envconfig:"SUPPLIER_COLUMN"`
	Amount           string `yaml:"amount" envconfig:"AMOUNT_COLUMN"`
	Category         string `yaml:"category" envconfig:"CATEGORY_COLUMN"`
	SubCategory      string `yaml:"subcategory" envconfig:"SUBCATEGORY_COLUMN"`
	PONumber         string `yaml:"po_number" envconfig:"PO_NUMBER_COLUMN"`
	POStatus         string `yaml:"po_status" envconfig:"PO_STATUS_COLUMN"`
	ShipToState      string `yaml:"ship_to_state" envconfig:"SHIP_TO_STATE_COLUMN"`
	SupplierState    string `yaml:"supplier_state" envconfig:"SUPPLIER_STATE_COLUMN"`
	SupplierCity     string `yaml:"supplier_city" envconfig:"SUPPLIER_CITY_COLUMN"`
	SupplierLocation string `yaml:"supplier_location" envconfig:"SUPPLIER_LOCATION_COLUMN"`
}

// AnalysisConfig holds the thresholds used by the aggregation endpoints.
// The variable names match the legacy dashboard so existing deployments keep working.
type AnalysisConfig struct {
	MinSuppliersForConsolidation int     `yaml:"min_suppliers_for_consolidation" envconfig:"MIN_SUPPLIERS_FOR_CONSOLIDATION"`
	MinSpendForConsolidation     float64 `yaml:"min_spend_for_consolidation" envconfig:"MIN_SPEND_FOR_CONSOLIDATION"`
	DefaultDiscountPercent       float64 `yaml:"default_discount_percent" envconfig:"DEFAULT_DISCOUNT_PERCENT"`
	TopNSuppliers                int     `yaml:"top_n_suppliers" envconfig:"TOP_N_SUPPLIERS"`
	TopNStates                   int     `yaml:"top_n_states" envconfig:"TOP_N_STATES"`
}

// CacheConfig contains memoization settings
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl" envconfig:"CACHE_TTL"`
	MaxEntries      int           `yaml:"max_entries" envconfig:"MAX_ENTRIES"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" envconfig:"CLEANUP_INTERVAL"`
}

// TelemetryConfig contains OpenTelemetry settings
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TracingEnabled bool    `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	SampleRate     float64 `yaml:"sample_rate" envconfig:"SAMPLE_RATE"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
	SendQueueSize   int           `yaml:"send_queue_size" envconfig:"SEND_QUEUE_SIZE"`
}

// Load loads configuration. Defaults are overlaid by the YAML file (if any)
// and then by environment variables, so env always wins.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the keys present in a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ResolvePaths returns the directories derived from this configuration.
func (c *Config) ResolvePaths() (*Paths, error) {
	return NewPaths(c.Paths)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if strings.TrimSpace(c.Data.Columns.Date) == "" || strings.TrimSpace(c.Data.Columns.Amount) == "" {
		return fmt.Errorf("date and amount column names are required")
	}

	if c.Analysis.MinSuppliersForConsolidation < 1 {
		return fmt.Errorf("min suppliers for consolidation must be at least 1, got %d", c.Analysis.MinSuppliersForConsolidation)
	}

	if c.Analysis.MinSpendForConsolidation < 0 {
		return fmt.Errorf("min spend for consolidation cannot be negative")
	}

	if c.Analysis.DefaultDiscountPercent < 0 || c.Analysis.DefaultDiscountPercent > 100 {
		return fmt.Errorf("default discount percent must be between 0 and 100, got %v", c.Analysis.DefaultDiscountPercent)
	}

	if c.Analysis.TopNSuppliers < 1 || c.Analysis.TopNStates < 1 {
		return fmt.Errorf("top-n defaults must be at least 1")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Data.MaxExportRows <= 0 {
		c.Data.MaxExportRows = DefaultMaxExportRows
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8501"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "console",
			FilePath:    "logs/app.log",
			Development: false,
		},
		Paths: PathsConfig{
			UploadsDir: DefaultUploadsDir,
			ReportsDir: DefaultReportsDir,
			LogsDir:    DefaultLogsDir,
		},
		Data: DataConfig{
			Path:           DefaultDataPath,
			Encoding:       DefaultEncoding,
			MaxUploadBytes: DefaultMaxUploadBytes,
			MaxExportRows:  DefaultMaxExportRows,
			Columns:        DefaultColumns(),
		},
		Analysis: AnalysisConfig{
			MinSuppliersForConsolidation: DefaultMinSuppliersForConsolidation,
			MinSpendForConsolidation:     DefaultMinSpendForConsolidation,
			DefaultDiscountPercent:       DefaultDiscountPercent,
			TopNSuppliers:                DefaultTopNSuppliers,
			TopNStates:                   DefaultTopNStates,
		},
		Cache: CacheConfig{
			TTL:             DefaultCacheTTL,
			MaxEntries:      DefaultCacheMaxEntries,
			CleanupInterval: DefaultCacheCleanupInterval,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "development",
			TracingEnabled: false,
			MetricsEnabled: true,
			SampleRate:     1.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
			SendQueueSize:   32,
		},
	}
}

// DefaultColumns returns the header names of the standard purchase-order export.
func DefaultColumns() ColumnsConfig {
	return ColumnsConfig{
		Date:             "PO Order Date",
		Supplier:         "Corcentric Supplier Name",
		Amount:           "Line Item Subtotal",
		Category:         "Category",
		SubCategory:      "SubCategory",
		PONumber:         "VSTX PO #",
		POStatus:         "PO Status",
		ShipToState:      "State",
		SupplierState:    "SupplierState",
		SupplierCity:     "SupplierCity",
		SupplierLocation: "Supplier City/State",
	}
}
