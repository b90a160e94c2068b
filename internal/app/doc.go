// Package app wires the spend dashboard together and manages its lifecycle.
//
// NewApplication resolves paths, initializes OpenTelemetry, and builds the
// dataset pipeline (loader, memo cache, report builder, DataService) along
// with the websocket hub and the HTTP router. Run starts the server, loads
// the initial dataset and blocks until SIGINT or SIGTERM.
//
// # Routes
//
//	/healthz, /healthz/ready, /healthz/live   probes
//	/metrics                                  Prometheus scrape endpoint
//	/ws                                       dataset change notifications
//	/version, /healthz/detailed               build and component status
//	/api/v1/...                               analytics, reports, exports, uploads
//
// # Startup data
//
// The configured source (data.path) is loaded when present. Otherwise the
// most recent archived upload is used. With neither, the dashboard starts
// empty and analytics endpoints answer NO_DATA until a file is uploaded.
package app
