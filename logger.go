package xroverlay

import (
	"log/slog"

	"github.com/gogpu/xroverlay/internal/xlog"
)

// SetLogger configures the logger for xroverlay and all its sub-packages.
// By default, xroverlay produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by xroverlay:
//   - [slog.LevelDebug]: per-frame and per-view detail, discarded events
//   - [slog.LevelInfo]: lifecycle (instance, session, state changes, frame rate)
//   - [slog.LevelWarn]: recoverable failures (skipped views, dropped layers, failed begins)
//   - [slog.LevelError]: fatal startup failures
//
// Every failure record carries the runtime operation ("op") and its result
// code ("result").
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	xroverlay.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	xlog.SetLogger(l)
}

// Logger returns the current logger used by xroverlay.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return xlog.Logger()
}
