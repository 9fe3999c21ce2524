package longpoll

import (
	"log/slog"

	"github.com/arloliu/longpoll/internal/logging"
)

// NewSlogLogger wraps an slog.Logger as a Logger usable with WithLogger.
//
// Parameters:
//   - logger: The underlying slog.Logger instance
//
// Returns:
//   - Logger: Adapter writing through the provided slog.Logger
func NewSlogLogger(logger *slog.Logger) Logger {
	return logging.NewSlog(logger)
}

// NewNopLogger returns a logger that discards everything. This is the
// default when no WithLogger option is given.
func NewNopLogger() Logger {
	return logging.NewNop()
}
