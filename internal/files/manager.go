package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	apperrors "github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
)

// Manager writes uploads and generated reports under the configured
// directories
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		paths:  paths,
		logger: logger.With(slog.String("component", "files")),
		now:    time.Now,
	}
}

// Save archives an accepted upload in the uploads directory and returns the
// stored path. Names are prefixed with a UTC timestamp so earlier uploads are
// never overwritten.
func (m *Manager) Save(name string, data []byte) (string, error) {
	stored := fmt.Sprintf("%s_%s", m.now().UTC().Format("20060102T150405.000"), SanitizeName(name))
	path := m.paths.GetUploadPath(stored)

	if err := m.WriteFile(path, data); err != nil {
		return "", apperrors.NewStorageError("archive upload", err).WithContext("name", name)
	}
	return path, nil
}

// SaveReport writes an exported report into the reports directory
func (m *Manager) SaveReport(name string, data []byte) (string, error) {
	path := m.paths.GetReportPath(SanitizeName(name))
	if err := m.WriteFile(path, data); err != nil {
		return "", apperrors.NewStorageError("save report", err).WithContext("name", name)
	}
	return path, nil
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	fullPath := m.resolvePath(path)
	_, err := os.Stat(fullPath)
	exists := err == nil

	m.logger.Debug("file exists check",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Bool("exists", exists))

	return exists
}

// WriteFile writes data to a file, creating parent directories. The content
// goes to a temporary sibling first and is renamed into place.
func (m *Manager) WriteFile(path string, data []byte) error {
	fullPath := m.resolvePath(path)

	m.logger.Info("writing file",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", len(data)))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(fullPath)+"."+uuid.NewString()[:8]+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// resolvePath resolves a path relative to the appropriate base directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	switch {
	case strings.HasPrefix(path, "uploads/"):
		return m.paths.GetUploadPath(strings.TrimPrefix(path, "uploads/"))
	case strings.HasPrefix(path, "reports/"):
		return m.paths.GetReportPath(strings.TrimPrefix(path, "reports/"))
	default:
		return filepath.Join(m.paths.BaseDir, path)
	}
}

// SanitizeName reduces a client-supplied file name to a safe base name
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "upload.csv"
	}
	return name
}
