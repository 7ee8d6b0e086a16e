// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.Caller {
		t.Error("Caller should default to false")
	}
	if !cfg.Timestamp {
		t.Error("Timestamp should default to true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("file", "stations.csv").Msg("loading stations")

	out := buf.String()
	if !strings.Contains(out, "loading stations") {
		t.Errorf("output missing message: %s", out)
	}
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("output missing level: %s", out)
	}
	if !strings.Contains(out, `"file":"stations.csv"`) {
		t.Errorf("output missing field: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info event written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn event missing: %s", out)
	}
}

func TestErr(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Err(errors.New("commit failed")).Msg("batch")

	if !strings.Contains(buf.String(), `"error":"commit failed"`) {
		t.Errorf("error field missing: %s", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithComponent("ingest")
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"ingest"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("console line")

	out := buf.String()
	if strings.Contains(out, `"message"`) {
		t.Errorf("console output should not be JSON: %s", out)
	}
	if !strings.Contains(out, "console line") {
		t.Errorf("console output missing message: %s", out)
	}
}

func TestSetLevelString(t *testing.T) {
	t.Cleanup(func() { Init(DefaultConfig()) })

	SetLevelString("error")
	if GetLevel() != zerolog.ErrorLevel {
		t.Errorf("GetLevel() = %v, want error", GetLevel())
	}
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewTestLogger(&buf)
	l.Info().Msg("captured")

	if !strings.Contains(buf.String(), "captured") {
		t.Errorf("test logger output missing message: %s", buf.String())
	}
}
