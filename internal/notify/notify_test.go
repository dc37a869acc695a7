package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogNotifier_WritesToLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	n := NewLogNotifier(logger)
	if err := n.Notify(context.Background(), "New job email from Example Corp"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Notification") {
		t.Errorf("log output missing message: %q", out)
	}
	if !strings.Contains(out, "New job email from Example Corp") {
		t.Errorf("log output missing text: %q", out)
	}
}

func TestLogNotifier_NilLogger(t *testing.T) {
	n := NewLogNotifier(nil)
	if n.logger == nil {
		t.Error("expected default logger")
	}
}
