package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup creates the process logger, sets it as slog's default, and returns
// it. The level parameter accepts "debug", "info", "warn", or "error"; the
// format parameter accepts "text" or "json" (json suits log shippers on a
// hosted install, text suits a terminal). Unrecognized values fall back to
// info and text.
func Setup(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
