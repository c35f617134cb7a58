package diag

import "log/slog"

// Logger writes diagnostics to a slog.Logger.
type Logger struct {
	logger *slog.Logger
}

var _ Sink = (*Logger)(nil)

// NewLogger creates a Logger. A nil logger uses slog.Default().
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// UnregisteredParameter implements Sink.
func (l *Logger) UnregisteredParameter(name string) {
	l.logger.Warn("parameter was not registered, add it to the parameter registry",
		"param", name)
}

// MigrationApplied implements Sink.
func (l *Logger) MigrationApplied(name string, count int, from, to any) {
	l.logger.Info("ran migrations for parameter",
		"param", name,
		"count", count,
		"from", from,
		"to", to)
}

// BindingError implements Sink.
func (l *Logger) BindingError(kind, key string, err error) {
	l.logger.Error("binding operation failed",
		"kind", kind,
		"key", key,
		"error", err)
}
