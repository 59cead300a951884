package application

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/example/managerapp/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&base, nil))
	ctxLogger := slog.New(slog.NewJSONHandler(&scoped, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	serviceLogger(ctx, baseLogger, "ClientsScreen", "Create", "client_id", 9).Info("hello")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %s", base.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(scoped.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}
	if entry["service"] != "ClientsScreen" || entry["operation"] != "Create" {
		t.Fatalf("expected service and operation attributes, got %v", entry)
	}
	if entry["client_id"] != float64(9) {
		t.Fatalf("expected extra attribute, got %v", entry["client_id"])
	}
}

func TestServiceLoggerFallsBackToBase(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	serviceLogger(context.Background(), base, "SessionManager", "").Info("ping")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}
	if _, ok := entry["operation"]; ok {
		t.Fatalf("expected no operation attribute when empty, got %v", entry)
	}
}
