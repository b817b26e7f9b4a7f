package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ju4n97/storyreel/internal/env"
)

type options struct {
	output     io.Writer
	logFile    string
	level      slog.Level
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	logToFile  bool
}

// Option configures the logger.
type Option func(*options)

// WithLogToFile enables writing logs to a rotating file in addition to the console.
func WithLogToFile(enabled bool) Option {
	return func(o *options) {
		o.logToFile = enabled
	}
}

// WithLogFile sets the path of the rotating log file.
func WithLogFile(path string) Option {
	return func(o *options) {
		o.logFile = path
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithOutput replaces the console writer.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithRotation sets the lumberjack rotation limits.
func WithRotation(maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *options) {
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
		o.maxAgeDays = maxAgeDays
	}
}

// New builds a logger for the given environment. Development logs are
// colourised with tint, production logs are JSON. When file logging is
// enabled, records are also written as JSON to a rotating file.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	o := &options{
		output:     os.Stderr,
		logFile:    "logs/storyreel.log",
		level:      slog.LevelInfo,
		maxSizeMB:  50,
		maxBackups: 3,
		maxAgeDays: 28,
	}
	if !environment.IsProduction() {
		o.level = slog.LevelDebug
	}
	for _, opt := range opts {
		opt(o)
	}

	var console slog.Handler
	if environment.IsProduction() {
		console = slog.NewJSONHandler(o.output, &slog.HandlerOptions{Level: o.level})
	} else {
		console = tint.NewHandler(o.output, &tint.Options{
			Level:      o.level,
			TimeFormat: time.TimeOnly,
		})
	}

	if !o.logToFile {
		return slog.New(console)
	}

	file := &lumberjack.Logger{
		Filename:   o.logFile,
		MaxSize:    o.maxSizeMB,
		MaxBackups: o.maxBackups,
		MaxAge:     o.maxAgeDays,
		Compress:   true,
	}

	return slog.New(fanout{
		console,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: o.level}),
	})
}

// fanout dispatches every record to each handler.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
