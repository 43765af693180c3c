// Package logging provides per-module structured logging for the daemon.
//
// Records fan out to every available sink:
//   - stdout, when a terminal, pipe or file is attached
//   - the systemd journal, when journald is reachable
//   - an in-memory ring buffer, served by the HTTP API
//
// Initialize once at startup, then ask for module loggers:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"gpio": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("gpio")
//	logger.Debug("Line requested", "line", "GPIO17")
//
// Loggers fetched before Initialize are kept and their level is updated in
// place, so package-level loggers are safe.
//
// Journal entries are tagged with SYSLOG_IDENTIFIER=sevenseg and carry
// attributes as upper-case fields:
//
//	journalctl -t sevenseg MODULE=device DEVICE=sevenseg
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	gpio = "debug"
//	api = "warn"
package logging
