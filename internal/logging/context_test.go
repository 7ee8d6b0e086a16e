// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestGenerateIDs(t *testing.T) {
	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("correlation ID length = %d, want 8", got)
	}
	if got := len(GenerateRequestID()); got != 36 {
		t.Errorf("request ID length = %d, want 36", got)
	}
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("request IDs should be unique")
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	if CorrelationIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" || RunIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no IDs")
	}

	ctx = ContextWithCorrelationID(ctx, "corr1234")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithRunID(ctx, "run-1")

	if got := CorrelationIDFromContext(ctx); got != "corr1234" {
		t.Errorf("CorrelationIDFromContext = %q, want corr1234", got)
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q, want req-1", got)
	}
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Errorf("RunIDFromContext = %q, want run-1", got)
	}
}

func TestContextWithNewCorrelationID(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())
	if CorrelationIDFromContext(ctx) == "" {
		t.Error("expected a generated correlation ID")
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithRunID(context.Background(), "run-42")
	ctx = ContextWithRequestID(ctx, "req-7")
	Ctx(ctx).Info().Msg("batch committed")

	out := buf.String()
	if !strings.Contains(out, `"run_id":"run-42"`) {
		t.Errorf("run_id missing: %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-7"`) {
		t.Errorf("request_id missing: %s", out)
	}
	if strings.Contains(out, "correlation_id") {
		t.Errorf("correlation_id should be absent: %s", out)
	}
}
