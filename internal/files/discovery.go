package files

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileInfo describes a discovered source file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds purchase-order sources on disk. Relative directories are
// resolved against basePath.
type Discovery struct {
	basePath string
}

func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindSources lists CSV and workbook files in dir, oldest first with ties
// broken by name. Hidden files and Office lock files (~$name.xlsx) are
// skipped.
func (d *Discovery) FindSources(dir string) ([]FileInfo, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var found []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") || !IsSource(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	slices.SortStableFunc(found, func(a, b FileInfo) int {
		if c := a.ModTime.Compare(b.ModTime); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return found, nil
}

// LatestSource returns the most recently modified source in dir. ok is
// false when dir holds no sources.
func (d *Discovery) LatestSource(dir string) (latest FileInfo, ok bool, err error) {
	found, err := d.FindSources(dir)
	if err != nil || len(found) == 0 {
		return FileInfo{}, false, err
	}
	return found[len(found)-1], true, nil
}

// IsSource reports whether name has an extension the loader reads
func IsSource(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}
