// Package app wires the datamod server together: configuration, logging,
// OpenTelemetry, the session and health services, the websocket event feed
// and the chi router.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, config file, DATAMOD_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Resolve and create the data, exports and logs directories
//	4. Load the unit factor table and build loader, processor and exporter
//	5. Create the websocket hub and the session service publishing to it
//	6. Mount handlers and middleware on the router
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// Run blocks until SIGINT or SIGTERM, then shuts the HTTP server down,
// closes event feed clients and flushes telemetry. The package never calls
// os.Exit.
package app
