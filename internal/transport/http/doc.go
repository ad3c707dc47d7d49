// Package http implements the HTTP handlers for the NBA data service.
// It is a thin layer between chi routing and the service layer: handlers
// parse and validate requests, delegate to services, and translate
// service errors into RFC 7807 problem responses.
//
// # Handlers
//
//   - DataHandler: registered domains, cleaned artifact listings and
//     downloads, pending workbooks (GET /api/data/...).
//   - RunsHandler: the run catalog, recent runs and per-file outcomes
//     (GET /api/runs, GET /api/runs/{id}).
//   - OperationsHandler: launching, polling and cancelling cleaning
//     runs (POST /api/operations, GET /api/operations/{id}/status, ...)
//     plus the async job surface backing the dashboard's poll loop.
//   - OperationsMetricsHandler: run-health summaries derived from the
//     in-memory operation states.
//   - HealthHandler: liveness, readiness and version.
//   - MetricsHandler: the Prometheus scrape endpoint.
//   - ClientLogHandler: log entries forwarded by the dashboard frontend.
//
// # Request flow
//
//	request -> chi router -> middleware -> handler -> service
//	response <- handler <- service result
//
// # Error handling
//
// Errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/validation_failed",
//	    "title": "validation_failed",
//	    "status": 400,
//	    "detail": "invalid season label \"2024\": want YYYY-YY",
//	    "instance": "/api/operations#req-123"
//	}
//
// Handlers depend on service interfaces (DataServiceInterface,
// OperationServiceInterface, RunServiceInterface) so tests can swap in
// mocks without standing up the full service layer.
package http
