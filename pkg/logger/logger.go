// Package logger holds the process-wide zap logger of fixedseg.
//
// Libraries take a *zap.Logger option and fall back to Get when none is
// given. Commands build a logger from configuration once and install it with
// Replace.
package logger

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

// contextKey is the type for context keys
type contextKey string

const (
	// SegmentKey is the context key for the segment file path
	SegmentKey contextKey = "segment"
	// SchemaKey is the context key for the schema name
	SchemaKey contextKey = "schema"
)

// Config represents logger configuration
type Config struct {
	Level       string
	Development bool
	Encoding    string // json or console
	// OutputPaths defaults to stderr so segment dumps on stdout stay clean
	OutputPaths []string
}

// New creates a new zap logger
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Encoding == "" {
		cfg.Encoding = "json"
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.Development {
		l = l.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return l, nil
}

// Replace installs l as the global logger
func Replace(l *zap.Logger) {
	global.Store(l)
}

// Get returns the global logger, building an info-level JSON logger on
// first use when none was installed
func Get() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	l, err := New(Config{})
	if err != nil {
		l = zap.NewNop()
	}
	if global.CompareAndSwap(nil, l) {
		return l
	}
	return global.Load()
}

// WithContext returns the global logger annotated with the segment and
// schema carried by ctx
func WithContext(ctx context.Context) *zap.Logger {
	l := Get()
	if segment, ok := ctx.Value(SegmentKey).(string); ok {
		l = l.With(zap.String("segment", segment))
	}
	if schemaName, ok := ctx.Value(SchemaKey).(string); ok {
		l = l.With(zap.String("schema", schemaName))
	}
	return l
}

// Sync flushes any buffered log entries
func Sync() error {
	if l := global.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
