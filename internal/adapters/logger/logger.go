// Package logger implements the logging adapter on top of log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"go.trai.ch/ladle/internal/core/ports"
)

var _ ports.Logger = (*Logger)(nil)

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// Options controls the output destination and format.
type Options struct {
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// JSON switches from the colored text handler to line-delimited JSON.
	JSON bool
	// Level is the initial minimum level.
	Level slog.Level
}

// New creates a logger writing colored text to stderr at info level.
func New() *Logger {
	return NewWithOptions(Options{Level: slog.LevelInfo})
}

// NewWithOptions creates a logger with explicit output settings.
func NewWithOptions(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(opts.Level)

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{Level: level})
	}
	return &Logger{logger: slog.New(handler), level: level}
}

// SetLevel adjusts the minimum level after construction. Verbosity flags
// are parsed after the logger exists, so the level must stay mutable.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Debug logs a debug message with structured attributes.
func (l *Logger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Info logs an informational message with structured attributes.
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs a warning message with structured attributes.
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs an error with structured attributes.
func (l *Logger) Error(err error, args ...any) {
	l.logger.Error("operation failed", append([]any{"error", err}, args...)...)
}
