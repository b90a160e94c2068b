// Package files stores uploaded purchase-order exports and generated reports,
// and discovers previously archived sources.
//
// Manager writes into the directories resolved by config.Paths. Save is the
// upload archive used by the dataset service: every accepted upload is kept
// under a timestamped name so the dashboard can restart on the most recent
// one.
//
// Discovery lists CSV and workbook sources in a directory:
//
//	discovery := files.NewDiscovery(paths.BaseDir)
//	latest, ok, err := discovery.LatestSource(paths.UploadsDir)
package files
