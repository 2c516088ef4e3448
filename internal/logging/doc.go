// Package logging assembles structured slog loggers for the compositor.
//
// It owns the console and JSON handlers, level parsing and output routing,
// plus a few attribute helpers so warnings carry a consistent shape.
package logging
