package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	return m
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "info", Format: "json"}, "whisperjob")
	l.Info("hello", Fields("words", 3))

	m := decodeLine(t, &buf)
	if m["message"] != "hello" {
		t.Errorf("expected message 'hello', got %v", m["message"])
	}
	if m["service"] != "whisperjob" {
		t.Errorf("expected service tag, got %v", m["service"])
	}
	if m["words"] != float64(3) {
		t.Errorf("expected words=3, got %v", m["words"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "warn", Format: "json"}, "svc")
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}
	l.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn message, got %q", buf.String())
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "loud", Format: "json"}, "svc")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug should be filtered when level falls back to info")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected info message")
	}
}

func TestWithComponentAndContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, &Config{Level: "debug", Format: "json"}, "svc")

	ctx := ContextWithJobID(context.Background(), "job-42")
	ctx = ContextWithRequestID(ctx, "req-7")
	base.WithComponent("pipeline").WithContext(ctx).Info("stage done")

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "pipeline" {
		t.Errorf("expected component=pipeline, got %v", m[FieldComponent])
	}
	if m[FieldJobID] != "job-42" {
		t.Errorf("expected job_id=job-42, got %v", m[FieldJobID])
	}
	if m[FieldRequestID] != "req-7" {
		t.Errorf("expected request_id=req-7, got %v", m[FieldRequestID])
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "info", Format: "console", NoColor: true}, "whisperjob")
	l.Info("console line")
	out := buf.String()
	if !strings.Contains(out, "[WHI][INF]") {
		t.Errorf("expected service/level tag, got %q", out)
	}
	if !strings.Contains(out, "console line") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Error("nothing")
	l.WithComponent("x").Info("nothing either")
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "json" || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp enabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"valid console stderr", Config{Level: "debug", Format: "console", Output: "stderr"}, false},
		{"bad level", Config{Level: "loud", Format: "json", Output: "stdout"}, true},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", Config{Level: "info", Format: "json", Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewNop()
	Register("custom", l)
	if Get("custom") != l {
		t.Error("expected registered logger")
	}
	if Get("unregistered-component") == nil {
		t.Error("expected fallback logger for unregistered name")
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(m), m)
	}
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields: %v", m)
	}
}

func TestDurationFields(t *testing.T) {
	m := DurationFields("normalize", 1500*time.Millisecond)
	if m[FieldOperation] != "normalize" {
		t.Errorf("expected operation, got %v", m[FieldOperation])
	}
	if m[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", m[FieldDuration])
	}
}
