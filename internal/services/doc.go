// Package services implements the business logic layer between the HTTP
// handlers and the analytics packages.
//
// # Data service
//
// DataService owns the active purchase-order dataset. It is loaded once at
// startup from the configured path and may be replaced by an upload. Readers
// take a snapshot under a read lock, so an in-flight request always sees a
// single consistent dataset even while a replacement is being published.
//
// Every analytics call follows the same path:
//
//	ds, err := s.view(ctx, filters)   // active dataset narrowed by filters
//	result, err := memoized(ctx, s, "top_entities", ds, params, compute)
//
// Results are memoized per dataset fingerprint in internal/cache, so a cache
// hit returns exactly what recomputation would. Replacing the dataset drops
// the entries computed from the previous one.
//
// # Health service
//
// HealthService reports liveness, readiness (a dataset is loaded) and runtime
// statistics for the /healthz endpoint.
//
// # Errors
//
// Services return sentinel errors from errors.go (ErrNoData when nothing has
// been loaded) or *errors.AppError values from the loader; handlers map both
// to problem responses.
package services
