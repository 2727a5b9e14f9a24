package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input      string
		want       zapcore.Level
		recognized bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"INFO", zapcore.InfoLevel, true},
		{" Warn ", zapcore.WarnLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"", zapcore.InfoLevel, true},
		{"verbose", zapcore.InfoLevel, false},
	}

	for _, tt := range tests {
		level, ok := ParseLevel(tt.input)
		assert.Equal(t, tt.want, level, "input %q", tt.input)
		assert.Equal(t, tt.recognized, ok, "input %q", tt.input)
	}
}

func TestFromEnv_UnrecognizedDefaultsToInfo(t *testing.T) {
	t.Setenv(LevelEnvVar, "chatty")

	log := FromEnv()

	assert.NotNil(t, log)
	assert.False(t, log.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
}
