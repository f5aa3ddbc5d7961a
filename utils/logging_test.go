package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelUnmarshalText(t *testing.T) {
	cases := map[string]LogLevel{
		"OFF":   LogLevelOff,
		"error": LogLevelError,
		"Warn":  LogLevelWarn,
		"INFO":  LogLevelInfo,
		"debug": LogLevelDebug,
	}
	for text, want := range cases {
		var level LogLevel
		require.NoError(t, level.UnmarshalText([]byte(text)), text)
		assert.Equal(t, want, level, text)
	}

	var level LogLevel
	assert.Error(t, level.UnmarshalText([]byte("shout")))
}

func TestLogLevelString(t *testing.T) {
	level := LogLevelInfo
	assert.Equal(t, "INFO", level.String())
}

func TestLoggerRespectsLevel(t *testing.T) {
	logger := NewLogger(LogLevelError)
	// Must not panic at any level, whether filtered or not.
	logger.Debug("quiet", "k", "v")
	logger.Info("quiet")
	logger.Warn("quiet")
	logger.SetLevel(LogLevelDebug)
	logger.Debug("loud")
}
