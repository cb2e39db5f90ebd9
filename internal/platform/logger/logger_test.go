package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":        Info,
		"debug":   Debug,
		" WARN ":  Warn,
		"warning": Warn,
		"error":   Error,
		"bogus":   Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestZeroLogger_JSON_WithFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Info, Format: FormatJSON, App: "test-app", Out: &buf})

	l.Debug("hidden", nil)
	l.With(map[string]any{"user_id": "u-1"}).Warn("dispense failed", map[string]any{
		"err": errors.New("device offline"),
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (debug filtered), got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry["level"] != "warn" || entry["message"] != "dispense failed" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry["app"] != "test-app" || entry["user_id"] != "u-1" || entry["err"] != "device offline" {
		t.Fatalf("missing fields: %#v", entry)
	}
}

func TestZeroLogger_SetLevel_AppliesToDerived(t *testing.T) {
	var buf bytes.Buffer
	root := New(Options{Level: Error, Format: FormatJSON, Out: &buf})
	child := root.With(map[string]any{"component": "jobs"})

	child.Info("before", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged at error level")
	}

	root.SetLevel(Debug)
	child.Info("after", nil)
	if !strings.Contains(buf.String(), `"after"`) {
		t.Fatalf("expected derived logger to follow root level, got %q", buf.String())
	}
}
