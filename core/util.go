package core

import (
	"context"
	"log/slog"
)

const (
	LevelTrace slog.Level = slog.LevelInfo + 1
)

// Trace logs a kernel-level event at LevelTrace.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
