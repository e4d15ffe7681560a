// Package logging builds the zap loggers used by cfgdoc.
//
// Library packages never construct loggers themselves. They accept one
// through a WithLogger option and fall back to zap.NewNop. Binaries call
// FromEnv once and pass the result down.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoder.
type Format string

const (
	// FormatConsole is a human-readable single line per entry.
	FormatConsole Format = "console"
	// FormatJSON emits one JSON object per entry.
	FormatJSON Format = "json"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "CFGDOC_LOG_LEVEL"
	EnvFormat = "CFGDOC_LOG_FORMAT"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "warn"

// ParseLevel converts a level name to a zapcore.Level. The empty string
// maps to DefaultLevel.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultLevel
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// ParseFormat converts a format name. The empty string maps to
// FormatConsole.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown log format %q", name)
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05 MST"))
}

func encoderConfig(f Format) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if f == FormatConsole {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeTime = timeEncoder
		cfg.ConsoleSeparator = " | "
	} else {
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return cfg
}

// New builds a logger writing to stderr.
func New(level string, format Format) (*zap.Logger, error) {
	return NewWriter(os.Stderr, level, format)
}

// NewWriter builds a logger writing to w.
func NewWriter(w io.Writer, level string, format Format) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	if f == FormatJSON {
		enc = zapcore.NewJSONEncoder(encoderConfig(f))
	} else {
		enc = zapcore.NewConsoleEncoder(encoderConfig(f))
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zap.NewAtomicLevelAt(lvl))
	return zap.New(core, zap.AddCaller()), nil
}

// FromEnv builds a logger from CFGDOC_LOG_LEVEL and CFGDOC_LOG_FORMAT.
// Invalid values fall back to the defaults and are reported on the
// returned logger.
func FromEnv() *zap.Logger {
	level := os.Getenv(EnvLevel)
	format := os.Getenv(EnvFormat)

	var problems []error
	if _, err := ParseLevel(level); err != nil {
		problems = append(problems, err)
		level = DefaultLevel
	}
	if _, err := ParseFormat(format); err != nil {
		problems = append(problems, err)
		format = string(FormatConsole)
	}

	logger, err := New(level, Format(format))
	if err != nil {
		return zap.NewNop()
	}
	for _, p := range problems {
		logger.Warn("ignoring logging environment", zap.Error(p))
	}
	return logger
}

// For returns a child logger named after component. A nil logger yields
// a no-op logger.
func For(logger *zap.Logger, component string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(component)
}

// Component names used across the binaries.
const (
	ComponentConfig  = "config"
	ComponentCodec   = "codec"
	ComponentLedger  = "ledger"
	ComponentWatcher = "watcher"
	ComponentBatch   = "batch"
	ComponentLua     = "lua"
	ComponentCLI     = "cli"
)
