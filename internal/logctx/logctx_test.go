package logctx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFromFallsBackToDefault(t *testing.T) {
	if From(context.Background()) != slog.Default() {
		t.Error("expected default logger for empty context")
	}
}

func TestWithRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", "json")
	ctx := With(context.Background(), l)

	From(ctx).Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("expected json output, got %q", buf.String())
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", "text")
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("expected warn output, got %q", buf.String())
	}
}
