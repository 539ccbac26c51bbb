// Package logging wraps log/slog with per-module levels for rpirtspd.
//
// Every package asks for its own logger once and keeps it:
//
//	logger := logging.GetLogger("control")
//	logger.Info("parameter applied", "stream", "main", "key", "bitrate")
//
// Loggers handed out before [Initialize] run at info and pick up their
// configured level when it is called. Levels come from the [logging]
// table, with [logging.modules] overriding single modules:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	control = "debug"
//	rtsp = "warn"
//
// Records go to stdout unless it points at /dev/null, to the systemd
// journal when journald is reachable, and always to a bounded [History]
// that backs GET /api/logs/stream. Journal entries carry the identifier
// rpirtspd and one upper-case field per attribute:
//
//	journalctl -t rpirtspd MODULE=control STREAM=main
package logging
