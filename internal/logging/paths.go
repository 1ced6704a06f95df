package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.scout/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".scout", "logs")
	}
	return filepath.Join(home, ".scout", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "scout.log")
}

// ResolvePath expands a leading "~/" and maps "default" to DefaultLogPath.
func ResolvePath(path string) string {
	switch {
	case path == "default":
		return DefaultLogPath()
	case len(path) > 1 && path[:2] == "~/":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
