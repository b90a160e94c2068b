package validation

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
)

// sourceExtensions are the purchase-order formats the loader reads
var sourceExtensions = map[string]bool{".csv": true, ".xlsx": true}

// FileValidator checks the paths handed to spendreport before any loading
// or exporting starts, so a bad flag fails fast with a typed error.
type FileValidator struct {
	logger *slog.Logger
}

func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With(slog.String("component", "file_validator"))}
}

// reject logs the failure and returns it
func (v *FileValidator) reject(err *apperrors.AppError, path string) error {
	v.logger.Error("file validation failed", slog.String("path", path), slog.String("error", err.Error()))
	return err.WithContext("path", path)
}

// ValidateFile checks that path is an existing, readable regular file
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return v.reject(apperrors.NewNotFoundError("file "+path, err), path)
	case err != nil:
		return v.reject(apperrors.NewStorageError("failed to stat "+path, err), path)
	case info.IsDir():
		return v.reject(apperrors.NewAppValidationError(path+" is a directory, not a file"), path)
	}

	f, err := os.Open(path)
	if err != nil {
		return v.reject(apperrors.NewStorageError("file "+path+" is not readable", err), path)
	}
	f.Close()

	v.logger.Debug("file validated", slog.String("path", path), slog.Int64("size", info.Size()))
	return nil
}

// ValidateSource checks that path is a readable purchase-order CSV or
// workbook. Office lock files (~$name.xlsx) are rejected.
func (v *FileValidator) ValidateSource(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	if ext := strings.ToLower(filepath.Ext(path)); !sourceExtensions[ext] {
		return v.reject(apperrors.NewAppValidationError("file "+path+" is not a CSV or XLSX file (extension: "+ext+")"), path)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return v.reject(apperrors.NewAppValidationError("file "+path+" is a temporary Excel file"), path)
	}
	return nil
}

// ValidateOutputDirectory creates dir if needed and proves it is writable
// with a probe file that is removed again.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return v.reject(apperrors.NewStorageError("failed to create output directory", err), dir)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return v.reject(apperrors.NewStorageError("output directory is not writable", err), dir)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// ValidateOutputFile checks that path can be written and that its extension
// matches format ("csv" or "xlsx"). A path without an extension is accepted.
func (v *FileValidator) ValidateOutputFile(path, format string) error {
	if path == "" {
		return v.reject(apperrors.NewAppValidationError("output path is required"), path)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext != "" && ext != strings.ToLower(format) {
		return v.reject(apperrors.NewAppValidationError("output file "+path+" does not match format "+format), path)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return v.reject(apperrors.NewAppValidationError(path+" is a directory, not a file"), path)
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}
