// Package logging builds the single structured logger the orchestrator
// constructs once. Only the orchestrator logs; the pipeline components
// take no logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how the logger is constructed.
type Options struct {
	// Level is the minimum level logged: "debug", "info", "warn", or "error".
	Level string

	// JSON selects structured JSON output instead of a human-readable
	// console encoder. Pipelines invoked from a terminal typically want
	// console output; pipelines invoked from automation want JSON.
	JSON bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{Level: "info", JSON: false}
}

// New builds a *zap.Logger from the given options.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if !opts.JSON {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"

	return cfg.Build()
}

// Noop returns a logger that discards everything, for use in tests that
// don't care about log output but need to satisfy a *zap.Logger parameter.
func Noop() *zap.Logger {
	return zap.NewNop()
}
