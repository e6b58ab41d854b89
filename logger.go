package glvis

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gg"

	"github.com/gogpu/glvis/internal/offscreen"
	"github.com/gogpu/glvis/timeline"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for glvis and all its sub-packages,
// including the gg drawing library used by the scope engine.
// By default, glvis produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by glvis:
//   - [slog.LevelDebug]: per-frame diagnostics (clock drift, readback ring, target sizes)
//   - [slog.LevelInfo]: session lifecycle (negotiated formats, headless verdict, preset switches)
//   - [slog.LevelWarn]: recovered problems (bad timeline segments, synchronous readback fallback)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	glvis.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	timeline.SetLogger(l)
	offscreen.SetLogger(l)
	gg.SetLogger(l)
}

// Logger returns the current logger used by glvis.
// Engine packages (engine/scope, engine/projectm) call this to share the
// same logger configuration without introducing import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
