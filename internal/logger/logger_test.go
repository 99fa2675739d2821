package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")
	defer InitWithWriter(&buf, "INFO", "text")

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("expected debug/info to be filtered at WARN level, got: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("expected warn/error to be logged, got: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")
	defer InitWithWriter(&buf, "INFO", "text")

	Info("structured", "session_id", "pseudosession_test", "count", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["msg"] != "structured" {
		t.Errorf("expected msg %q, got %v", "structured", entry["msg"])
	}
	if entry["session_id"] != "pseudosession_test" {
		t.Errorf("expected session_id field, got %v", entry["session_id"])
	}
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")
	defer InitWithWriter(&buf, "INFO", "text")

	lc := NewLogContext("10.0.0.1")
	lc.RequestID = "req-123"
	lc.SessionID = "pseudosession_abc"
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "with context")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry[KeyRequestID] != "req-123" {
		t.Errorf("expected request_id injected, got %v", entry[KeyRequestID])
	}
	if entry[KeySessionID] != "pseudosession_abc" {
		t.Errorf("expected session_id injected, got %v", entry[KeySessionID])
	}
}

func TestFromContextMissing(t *testing.T) {
	if lc := FromContext(context.Background()); lc != nil {
		t.Errorf("expected nil LogContext, got %+v", lc)
	}
	if lc := FromContext(nil); lc != nil { //nolint:staticcheck
		t.Errorf("expected nil LogContext for nil ctx, got %+v", lc)
	}
}

func TestSetLevelInvalid(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	SetLevel("VERBOSE") // ignored
	Info("still info")

	if !strings.Contains(buf.String(), "still info") {
		t.Errorf("invalid level must not change filtering")
	}
}
