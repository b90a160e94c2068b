package contracts

import (
	"fmt"
	"runtime"
)

const (
	Version = "1.0.0"

	// DataFormatVersion versions the export table layout. Bump it when a
	// report table gains, loses or renames a column.
	DataFormatVersion = "v1"

	// APIVersion versions the HTTP routes and WebSocket messages
	APIVersion = "v1"

	productName = "Procurement Analytics"
)

// Set with -ldflags "-X github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts.GitCommit=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is served by GET /version
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo describes the running binary
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
}

// String renders the one-line form printed by spendreport -version
func (v VersionInfo) String() string {
	return fmt.Sprintf("%s v%s (built: %s, commit: %s, go: %s, os: %s/%s, export format: %s)",
		productName, v.Version, v.BuildTime, v.GitCommit, v.GoVersion, v.OS, v.Architecture, v.DataFormat)
}

// GetFullVersionString is GetVersionInfo().String()
func GetFullVersionString() string {
	return GetVersionInfo().String()
}
