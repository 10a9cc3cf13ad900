// Package app provides application initialization and lifecycle management
// for the climex server. It wires configuration, storage, services, and the
// HTTP surface together and handles graceful shutdown.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from the environment
//	2. Initialize logging and OpenTelemetry
//	3. Connect the pgx pool and apply the schema
//	4. Create repositories and services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM signals to ensure:
//
//	- Active requests are completed within the shutdown timeout
//	- Progress stream connections are closed cleanly
//	- Database connections are closed
//	- Final telemetry is flushed
//
// # Error Handling
//
// All initialization errors are returned to the caller. The package does
// not call os.Exit() directly, leaving exit control to main.
package app
