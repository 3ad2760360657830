package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(testContext *testing.T) {
	testCases := []struct {
		level    string
		expected zapcore.Level
	}{
		{level: "debug", expected: zapcore.DebugLevel},
		{level: "", expected: zapcore.InfoLevel},
		{level: "WARNING", expected: zapcore.WarnLevel},
		{level: "error", expected: zapcore.ErrorLevel},
		{level: "verbose", expected: zapcore.InfoLevel},
	}

	for _, testCase := range testCases {
		logger, err := NewLogger(testCase.level, "json")
		if err != nil {
			testContext.Fatalf("level %q: unexpected error: %v", testCase.level, err)
		}
		if !logger.Core().Enabled(testCase.expected) {
			testContext.Fatalf("level %q: expected %s enabled", testCase.level, testCase.expected)
		}
		if testCase.expected > zapcore.DebugLevel && logger.Core().Enabled(testCase.expected-1) {
			testContext.Fatalf("level %q: expected %s disabled", testCase.level, testCase.expected-1)
		}
	}
}

func TestNewLoggerConsoleFormat(testContext *testing.T) {
	logger, err := NewLogger("info", "console")
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	logger.Info("console logger ready")
}
