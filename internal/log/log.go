package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	xerrors "github.com/nikicat/secret-migrate/internal/errors"
)

// New returns a text logger writing to w at the given level (debug, info, warn, error).
// Data goes to stdout; logs belong on stderr or a file.
func New(w io.Writer, level string) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h)
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Open returns a logger writing to path, or to fallback when path is empty.
// The returned close function releases the log file.
func Open(path, level string, fallback io.Writer) (*slog.Logger, func() error, error) {
	if path == "" {
		return New(fallback, level), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, xerrors.Wrap(xerrors.CodeIOFailed, "opening log file",
			map[string]any{"path": path}, err)
	}
	return New(f, level), f.Close, nil
}
