// Package logger configures the process-wide slog logger. Interactive
// commands own the terminal, so logs default to a file under the data
// directory; dev mode keeps them on stdout.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Config struct {
	DataDir string
	DevMode bool
}

// Init wires the default slog logger. LOG_LEVEL picks the level,
// LOG_FORMAT=json switches encoding, LOG_FILE overrides the sink path.
func Init(cfg Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	w := sink(cfg)
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// sink decides where log output goes: LOG_FILE if set, stdout in dev
// mode, otherwise dataDir/client.log. A file that cannot be opened
// falls back to stderr so logs never corrupt rendered terminal output.
func sink(cfg Config) io.Writer {
	path := os.Getenv("LOG_FILE")
	if path == "" {
		if cfg.DevMode || cfg.DataDir == "" {
			return os.Stdout
		}
		path = filepath.Join(cfg.DataDir, "client.log")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return os.Stderr
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return os.Stderr
	}
	return f
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRequestLogger returns a logger carrying a unique requestId, used
// by the proxy handlers.
func NewRequestLogger() *slog.Logger {
	return slog.With("requestId", uuid.Must(uuid.NewV7()).String())
}
