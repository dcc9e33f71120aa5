package otel_test

import (
	"context"
	"testing"

	"github.com/meridianpress/meridian/internal/platform/otel"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("MERIDIAN_OTEL_ENDPOINT", "")
	t.Setenv("MERIDIAN_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "meridian-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupNoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("MERIDIAN_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("MERIDIAN_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "meridian-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
