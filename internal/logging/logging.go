// Package logging provides the leveled logger shared by every i8080
// subcommand. The reference toolchain leans on the Rust `log` crate's
// trace!/debug!/warn! macros gated by log_enabled! checks; no third-party
// structured logging library appears anywhere in the retrieved example
// pack, so this wraps the standard library's log/slog instead.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// slog has no Trace level, so Trace is modeled as a level below Debug,
// matching the reference's trace!/debug! granularity split (§6 of the
// spec reserves "trace" as debug's finer sibling, not a distinct log
// sink).
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps the toolchain's --log-level values to slog levels.
// Unrecognized names fall back to info, mirroring env_logger's
// default-on-garbage-input behavior.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to w at the given level, with a text handler
// (one line per record, key=value pairs) rather than JSON, matching the
// reference's plain-text env_logger output.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default returns a logger writing to stderr at the given level, the
// toolchain's normal configuration.
func Default(level slog.Level) *slog.Logger {
	return New(os.Stderr, level)
}
