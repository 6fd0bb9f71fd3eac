// Package logging builds the process-wide slog.Logger from the CLI's -v/-vv
// verbosity flags, the way buflsp threads a single *slog.Logger down into
// every LSP-facing type (lsp.logger) instead of using a global logger.
package logging

import (
	"log/slog"
	"os"
)

// Verbosity selects the log level and handler detail.
type Verbosity int

const (
	// Quiet logs warnings and errors only.
	Quiet Verbosity = iota
	// Verbose (-v) adds info-level logging. The server logs at info level
	// only when it starts serving (listening address or stdio); session
	// open/close, index rebuilds and rewrite batches are not logged at info.
	Verbose
	// VeryVerbose (-vv) adds debug-level logging, including every
	// navigation miss (spec §7: "navigation features return null and log
	// at debug level").
	VeryVerbose
)

// New builds a logger writing to stderr (stdout is reserved for the LSP
// stdio transport).
func New(v Verbosity) *slog.Logger {
	level := slog.LevelWarn
	addSource := false
	switch v {
	case Verbose:
		level = slog.LevelInfo
	case VeryVerbose:
		level = slog.LevelDebug
		addSource = true
	}

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	})
	return slog.New(h)
}
