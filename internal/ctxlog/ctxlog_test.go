package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)

	FromContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("log output %q does not contain message", buf.String())
	}
}

func TestFromContextWithoutLoggerDiscards(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatalf("FromContext returned nil")
	}
	// Не должно паниковать и не должно ничего писать.
	logger.Error("dropped")
}

func TestLevelTraceBelowDebug(t *testing.T) {
	if LevelTrace >= slog.LevelDebug {
		t.Fatalf("LevelTrace = %v, want below %v", LevelTrace, slog.LevelDebug)
	}
}
