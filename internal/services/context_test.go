package services

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-42")
	ctx = WithStage(ctx, "fetch")
	ctx = WithTarget(ctx, "deep_coadd:3828/12/r")
	ctx = WithRequestID(ctx, "abc123")

	if got, ok := RunIDFromContext(ctx); !ok || got != "run-42" {
		t.Fatalf("run id = %q, %v", got, ok)
	}
	if got, ok := StageFromContext(ctx); !ok || got != "fetch" {
		t.Fatalf("stage = %q, %v", got, ok)
	}
	if got, ok := TargetFromContext(ctx); !ok || got != "deep_coadd:3828/12/r" {
		t.Fatalf("target = %q, %v", got, ok)
	}
	if got, ok := RequestIDFromContext(ctx); !ok || got != "abc123" {
		t.Fatalf("request id = %q, %v", got, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := WithStage(context.Background(), "")
	if _, ok := StageFromContext(ctx); ok {
		t.Fatal("empty stage should not be stored")
	}
	if _, ok := RunIDFromContext(context.Background()); ok {
		t.Fatal("missing run id should report not ok")
	}
}
