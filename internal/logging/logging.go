package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the log file. Empty disables file logging.
	FilePath string
	// MaxSizeMB is the size in MB that triggers rotation.
	MaxSizeMB int
	// MaxFiles is the number of rotated files kept next to the live one.
	MaxFiles int
	// Stderr also writes records to stderr.
	Stderr bool
}

// DefaultConfig logs info and above to stderr only.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		MaxSizeMB: 10,
		MaxFiles:  5,
		Stderr:    true,
	}
}

// Setup builds a JSON logger for cfg. The returned cleanup closes the log
// file, if any, and is never nil.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var (
		writers []io.Writer
		cleanup = func() {}
	)

	if cfg.FilePath != "" {
		w, err := NewRotatingWriter(ResolvePath(cfg.FilePath), cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, w)
		cleanup = func() {
			_ = w.Sync()
			_ = w.Close()
		}
	}
	if cfg.Stderr {
		writers = append(writers, os.Stderr)
	}

	if len(writers) == 0 {
		return Discard(), cleanup, nil
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	return slog.New(handler), cleanup, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
