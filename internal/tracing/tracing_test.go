package tracing

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestInitTracerDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := InitTracer(context.Background(), "sea-test", "", logger)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := InitTracer(context.Background(), "sea-test", "127.0.0.1:4318", logger)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// No spans were recorded, so shutdown has nothing to export.
	_ = shutdown(ctx)
}
