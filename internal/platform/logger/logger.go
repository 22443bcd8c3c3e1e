package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. LOG_LEVEL=debug lowers
// the threshold; anything else logs at info.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
