// Package logger builds the zap logger used across the pipeline. The
// logger is constructed once at process entry and passed into every
// component; there is no package-level logger state.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnvVar selects the log verbosity (DEBUG, INFO, WARN, ERROR).
// Unset or unrecognized values mean INFO.
const LevelEnvVar = "IMPORT_RHCOS_LOGLEVEL"

// New creates a console-format SugaredLogger at the given level.
func New(level zapcore.Level) *zap.SugaredLogger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "name",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	return zap.New(core).Sugar()
}

// FromEnv creates a logger at the level named by LevelEnvVar.
func FromEnv() *zap.SugaredLogger {
	level, _ := ParseLevel(os.Getenv(LevelEnvVar))
	return New(level)
}

// ParseLevel converts a severity name to a zap level. The second return
// reports whether the input was a recognized name; INFO is returned
// either way.
func ParseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "", "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// Nop returns a logger that discards everything. For tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
