package obs

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"", zapcore.InfoLevel},
		{"shouting", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		l, err := NewLogger(LogConfig{Level: tc.level, Service: "authd"})
		if err != nil {
			t.Fatalf("level %q: %v", tc.level, err)
		}
		if !l.Core().Enabled(tc.want) {
			t.Fatalf("level %q: %v should be enabled", tc.level, tc.want)
		}
		if tc.want > zapcore.DebugLevel && l.Core().Enabled(tc.want-1) {
			t.Fatalf("level %q: %v should be disabled", tc.level, tc.want-1)
		}
	}
}

func TestNewLoggerPretty(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "debug", Pretty: true})
	if err != nil {
		t.Fatalf("pretty logger: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug should be enabled")
	}
}
