// Package logging configures the structured slog logger used across scout.
//
// Records are JSON. They go to stderr and, when a file is configured, to a
// size-rotated log file under ~/.scout/logs/.
package logging
