package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the logging surface handed to components, kept as an interface
// for dependency injection and testing.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Format represents the output format.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Config holds logger configuration.
type Config struct {
	Level   slog.Level
	Format  Format
	Output  io.Writer
	AddTime bool
}

type slogLogger struct {
	logger *slog.Logger
}

// NewLogger creates a logger with the given configuration.
func NewLogger(config Config) Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level}
	if !config.AddTime {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &slogLogger{logger: slog.New(handler)}
}

// NewDefaultLogger creates a logger with sensible defaults for a service.
func NewDefaultLogger() Logger {
	return NewLogger(Config{
		Level:   slog.LevelInfo,
		Format:  FormatText,
		Output:  os.Stderr,
		AddTime: true,
	})
}

// NewVerboseLogger creates a logger that shows debug information.
func NewVerboseLogger() Logger {
	return NewLogger(Config{
		Level:   slog.LevelDebug,
		Format:  FormatText,
		Output:  os.Stderr,
		AddTime: true,
	})
}

// NewDisabledLogger creates a logger that discards all output (useful for tests).
func NewDisabledLogger() Logger {
	return NewLogger(Config{
		Level:  slog.Level(1000),
		Format: FormatText,
		Output: io.Discard,
	})
}

// NewComponentLogger tags a logger with a component name.
func NewComponentLogger(component string) Logger {
	return NewDefaultLogger().With("component", component)
}

func (l *slogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *slogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}
