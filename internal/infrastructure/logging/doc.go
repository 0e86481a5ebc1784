// Package logging provides structured logging for Studiocast Capture Core.
//
// It wraps Go's standard log/slog package so every component logs with the
// same handler, level filtering and default fields (service, version).
// Components never reach for a global logger: the *Logger built here is
// injected into the ingest supervisor, the schedule engine and the API
// server at construction.
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("relay started", "room_id", roomID, "pid", pid)
//
// Relay subprocess output is logged at debug level; enable "debug" to see
// ffmpeg's own diagnostics per room.
package logging
