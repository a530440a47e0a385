// Package log provides the structured logger used by doughub, built on top
// of the standard slog package.
//
// This package extends slog to provide:
//   - Truncation of fixture markup carried in log attributes
//   - Replacement of invalid UTF-8 coming from binary fixtures
//   - Configurable log levels with verbose mode support
//
// # Content Handling
//
// The ContentHandler treats the keys html, raw, fragment, snippet and
// diagnostic, and any key ending in _html, as markup. Their values are
// collapsed to one line and cut to DefaultMaxFragmentLen bytes, so a
// logged region or diagnostic never floods the terminal.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Warn("stage failed",
//	    "fixture", "sample_mksap",
//	    "diagnostic", diag, // Collapsed and truncated
//	)
//
//	slog.SetDefault(logger)
package log
