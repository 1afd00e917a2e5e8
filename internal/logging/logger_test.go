package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConfigure_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, true)
	defer Configure(&bytes.Buffer{}, false)

	WithRequest(WithComponent("charts"), "req-1").Info("chart dropped")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "charts" {
		t.Errorf("component = %v, want charts", entry["component"])
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry["request_id"])
	}
}

func TestConfigure_DevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, false)

	WithComponent("shaper").Debug("trimmed payload")
	if !strings.Contains(buf.String(), "trimmed payload") {
		t.Errorf("debug line missing from development output: %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	if Discard() == nil {
		t.Fatal("expected non-nil entry")
	}
}
