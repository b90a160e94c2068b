// Package dataprocessing turns a purchase-order export into a Dataset and
// derives every view the dashboard and reports need from it.
//
// # Pipeline
//
//	source (CSV/XLSX) → Loader → Dataset → Filter → aggregations → tables
//
// The Loader resolves the configured column names once, cleans each row and
// drops rows without a usable amount or order date, counting them by reason
// in the dataset's LoadReport. A source that cannot be read at all yields an
// empty Dataset together with an *errors.AppError, so callers can show a
// "no data" state without special-casing nil.
//
// Filter and the aggregation functions are pure: they never modify their
// input and return new values, which makes them safe to memoize by dataset
// fingerprint.
//
// # Amounts
//
// Amounts are kept as decimal.Decimal and summed exactly; results expose
// float64 at the boundary.
//
// # Errors
//
// Invalid caller parameters (n < 1, unknown dimension) wrap
// ErrInvalidParameter. Degenerate data (empty dataset, zero totals) never
// produces an error.
package dataprocessing
