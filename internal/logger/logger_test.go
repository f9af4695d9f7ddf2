package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// TestLoggerInitialization tests that logger can be initialized with different log levels
func TestLoggerInitialization(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{name: "Valid DEBUG level", level: "DEBUG", want: logrus.DebugLevel},
		{name: "Valid INFO level", level: "INFO", want: logrus.InfoLevel},
		{name: "Valid WARN level", level: "WARN", want: logrus.WarnLevel},
		{name: "Valid ERROR level", level: "ERROR", want: logrus.ErrorLevel},
		{name: "Invalid level defaults to INFO", level: "INVALID", want: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Init(tt.level)
			assert.Equal(t, tt.want, GetLogger().Level)
		})
	}
}

// TestGetLoggerInitializesLazily tests that GetLogger works before Init
func TestGetLoggerInitializesLazily(t *testing.T) {
	log = nil
	assert.NotNil(t, GetLogger())
	assert.Equal(t, logrus.InfoLevel, GetLogger().Level)
}
