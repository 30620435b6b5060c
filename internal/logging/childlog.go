package logging

import (
	"log/slog"
	"strings"
)

// MaxLineLength is the maximum length of a child output line before
// truncation.
const MaxLineLength = 4096

// TruncateLine bounds a child output line for logging.
func TruncateLine(line string) string {
	if len(line) > MaxLineLength {
		return line[:MaxLineLength] + "...(truncated)"
	}
	return line
}

// ClassifyLine determines the log level for a child output line based on
// its content. Dev servers write almost everything to stderr, so the
// stream alone says nothing about severity.
func ClassifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	if strings.Contains(lower, "error") ||
		strings.Contains(lower, "cannot find module") ||
		strings.Contains(lower, "eaddrinuse") ||
		strings.Contains(lower, "unhandled") ||
		strings.Contains(lower, "fatal") {
		return slog.LevelWarn
	}

	if strings.Contains(lower, "warn") ||
		strings.Contains(lower, "deprecated") {
		return slog.LevelWarn
	}

	// Progress and banner noise.
	return slog.LevelDebug
}
