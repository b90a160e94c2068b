package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the directories the application writes to.
// Relative entries in PathsConfig are resolved against BaseDir, which
// defaults to the current working directory.
type Paths struct {
	BaseDir    string
	UploadsDir string
	ReportsDir string
	LogsDir    string
}

// NewPaths resolves the configured directories
func NewPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", base, err)
	}

	return &Paths{
		BaseDir:    abs,
		UploadsDir: resolve(abs, cfg.UploadsDir, DefaultUploadsDir),
		ReportsDir: resolve(abs, cfg.ReportsDir, DefaultReportsDir),
		LogsDir:    resolve(abs, cfg.LogsDir, DefaultLogsDir),
	}, nil
}

func resolve(base, configured, fallback string) string {
	if configured == "" {
		configured = fallback
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(base, configured)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.UploadsDir,
		p.ReportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetUploadPath returns the path for a stored upload
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filepath.Base(filename))
}

// GetReportPath returns the path for a generated report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filepath.Base(filename))
}

// ResolveDataPath makes a data source path absolute against BaseDir.
func (p *Paths) ResolveDataPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.BaseDir, path)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("uploads", p.UploadsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		))
}
