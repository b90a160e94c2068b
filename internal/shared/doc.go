// Package shared holds code used across layers that belongs to no single
// domain package.
//
// The testutil subpackage provides the purchase-order fixtures and the
// buffered slog handler the package tests assert log output with:
//
//	logger, logs := testutil.NewTestLogger(t)
//	path := testutil.WriteFile(t, "po.csv", testutil.ScenarioCSV)
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelWarn, "rows dropped")
package shared
