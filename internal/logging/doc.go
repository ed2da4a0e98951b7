// Package logging provides structured logging for rplisten.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the tool. Logging is silent by default so that CLI
// output and the terminal UI stay clean.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (ECP frames, stale callbacks, probe failures)
//   - Info: Normal operations (discovery runs, session transitions)
//   - Warn: Non-fatal issues (player not found, disconnect failures)
//   - Error: Unexpected failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When the level is empty the RPLISTEN_LOG_LEVEL environment variable is
// consulted. Components take a *zap.Logger and usually receive a named child:
//
//	machine := session.NewMachine(client, pool, logging.Named("session"))
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize should be
// called once, before other goroutines start logging.
package logging
