package services

import "errors"

// Data service errors
var (
	// ErrNoData is returned by analytics calls before any dataset has been loaded
	ErrNoData = errors.New("no dataset loaded")

	// ErrEmptyUpload is returned when an upload carried no bytes at all
	ErrEmptyUpload = errors.New("upload is empty")

	// ErrUnsupportedFormat is returned for export formats other than csv and xlsx
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrTableNotFound is returned when a CSV export names a table the report lacks
	ErrTableNotFound = errors.New("report table not found")
)
