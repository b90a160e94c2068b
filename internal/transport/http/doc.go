// Package http implements the HTTP handlers of the spend dashboard. Handlers
// are a thin layer over services.DataService: they parse and validate query
// parameters or JSON bodies, call the service, and render JSON with
// go-chi/render.
//
// # Error Handling
//
// Every failure goes through errors.ErrorHandler and is written as RFC 7807
// problem details:
//
//	{
//	    "type": "/errors/no-data",
//	    "title": "Not Found",
//	    "status": 404,
//	    "error_code": "NO_DATA",
//	    "detail": "No purchase-order data is loaded",
//	    "instance": "/api/v1/summary"
//	}
//
// services.ErrNoData becomes NO_DATA (404), domain.ErrInvalidParameter a 400,
// and a rejected upload INVALID_UPLOAD (422).
//
// # Filters
//
// Every analytics route accepts start and end (YYYY-MM-DD) and the list
// parameters category, subcategory, state, city, supplier and status. List
// parameters may repeat or hold comma-separated values.
//
// # WebSocket
//
// GET /ws upgrades the connection and registers it with the event hub, which
// pushes dataset:loaded and dataset:replaced events.
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// AnalyticsService.
package http
