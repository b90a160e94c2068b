package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	apperrors "github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
)

func newTestManager(t *testing.T) (*Manager, *config.Paths) {
	t.Helper()
	paths, err := config.NewPaths(config.PathsConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	m := NewManager(paths, nil)
	m.now = func() time.Time { return time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC) }
	return m, paths
}

func TestManager_Save(t *testing.T) {
	m, paths := newTestManager(t)

	path, err := m.Save("Q3 export.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)

	assert.Equal(t, paths.UploadsDir, filepath.Dir(path))
	assert.Equal(t, "20240701T093000.000_Q3_export.csv", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	entries, err := os.ReadDir(paths.UploadsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestManager_SaveReport(t *testing.T) {
	m, paths := newTestManager(t)

	path, err := m.SaveReport("../../etc/executive_summary.xlsx", []byte("PK"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.ReportsDir, "executive_summary.xlsx"), path)
	assert.True(t, m.FileExists("reports/executive_summary.xlsx"))
}

func TestManager_FileLifecycle(t *testing.T) {
	m, paths := newTestManager(t)

	require.NoError(t, m.WriteFile("uploads/nested.csv", []byte("x")))
	assert.True(t, m.FileExists("uploads/nested.csv"))
	assert.FileExists(t, filepath.Join(paths.UploadsDir, "nested.csv"))

	require.NoError(t, m.WriteFile("notes/readme.txt", []byte("y")))
	assert.FileExists(t, filepath.Join(paths.BaseDir, "notes", "readme.txt"))
	assert.False(t, m.FileExists("uploads/missing.csv"))
}

func TestManager_SaveFailureIsStorageError(t *testing.T) {
	m, paths := newTestManager(t)

	// A regular file where the uploads directory should be
	require.NoError(t, os.RemoveAll(paths.UploadsDir))
	require.NoError(t, os.WriteFile(paths.UploadsDir, []byte("x"), 0644))

	_, err := m.Save("po.csv", []byte("data"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "po.csv", want: "po.csv"},
		{name: "spaces", in: "Q3 PO export.csv", want: "Q3_PO_export.csv"},
		{name: "unix traversal", in: "../../secret.csv", want: "secret.csv"},
		{name: "windows path", in: `C:\Users\me\po.xlsx`, want: "po.xlsx"},
		{name: "hidden file", in: ".env", want: "env"},
		{name: "only symbols", in: "$$$", want: "upload.csv"},
		{name: "empty", in: "", want: "upload.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.ContainsAny(got, `/\`))
		})
	}
}
