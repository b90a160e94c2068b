// Package cache memoizes analytics results per dataset.
//
// Entries are keyed by operation name, serialized parameters and the
// fingerprint of the dataset they were computed from, so a result can never
// be served for a different dataset. Concurrent requests for the same key
// share one computation through singleflight.
package cache
