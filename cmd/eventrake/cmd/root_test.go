package cmd

import (
	"log/slog"
	"testing"
)

func TestInitLogger(t *testing.T) {
	defer func(prev bool) { verbose = prev }(verbose)

	verbose = false
	initLogger()
	if slog.Default().Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info logging should be off by default")
	}
	if !slog.Default().Enabled(t.Context(), slog.LevelWarn) {
		t.Error("warnings should be logged by default")
	}

	verbose = true
	initLogger()
	if !slog.Default().Enabled(t.Context(), slog.LevelDebug) {
		t.Error("verbose mode should enable debug logging")
	}
}
