package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"ripple/internal/services"
)

func TestConsoleHandlerFormatsRecord(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	handler := newConsoleHandler(&buf, levelVar, false)
	logger := slog.New(handler)

	logger.Info("fetch complete",
		String(FieldComponent, "butler"),
		String("dataset", "deepCoadd"),
		Int(FieldAttempt, 2))

	line := buf.String()
	if !strings.Contains(line, "INFO butler: fetch complete") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "dataset=deepCoadd") {
		t.Fatalf("expected dataset attr in line: %q", line)
	}
	if !strings.Contains(line, "attempt=2") {
		t.Fatalf("expected attempt attr in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.Warn("slow response", String("reason", "server busy"))
	if !strings.Contains(buf.String(), `reason="server busy"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	ctx := services.WithRunID(context.Background(), "run-7")
	ctx = services.WithStage(ctx, "preprocess")

	WithContext(ctx, logger).Info("normalized")
	line := buf.String()
	if !strings.Contains(line, "run_id=run-7") || !strings.Contains(line, "stage=preprocess") {
		t.Fatalf("expected context fields in line: %q", line)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
