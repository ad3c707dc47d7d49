// Package app wires the dashboard server together: configuration,
// observability, the run catalog, the cleaning operation manager and the
// HTTP surface.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and OpenTelemetry
//	3. Open the SQLite run catalog
//	4. Start the WebSocket hub and job queue
//	5. Initialize services with their dependencies
//	6. Set up HTTP handlers and middleware
//	7. Configure the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM so that active requests complete, the
// job queue drains, WebSocket connections close cleanly, the catalog is
// closed and final metrics are flushed.
//
// All initialization errors are returned to the caller; the package
// never calls os.Exit() directly.
package app
