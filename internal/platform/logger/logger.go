// Package logger provides structured logging for the game server.
// Every change to a player's nutrients should be traceable through this.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures a Logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	File   string // Extra output path
	Stderr bool   // Write to stderr instead of stdout
}

// Logger provides structured logging with context.
type Logger struct {
	z *zap.Logger
}

// NewLogger creates a logger at info level writing console output to stdout.
func NewLogger() *Logger {
	l, err := New(Options{Level: "info", Format: "console"})
	if err != nil {
		return NewNop()
	}
	return l
}

// New builds a logger from options.
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch opts.Format {
	case "", "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		cfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	cfg.OutputPaths = []string{"stdout"}
	if opts.Stderr {
		cfg.OutputPaths = []string{"stderr"}
	}
	if opts.File != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.File)
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{z: z.Named("absurditree")}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Wrap adapts an existing zap logger (tests use zaptest/observer).
func Wrap(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// Debug logs diagnostic messages.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}

// Info logs informational messages.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

// Event logs a game event for the audit trail.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.z.Info("event",
		zap.String("type", eventType),
		zap.String("actor", actorID),
		zap.String("details", details))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
