package main

import (
	"strings"
	"testing"

	"workchat/config"
)

func TestSystemMsg(t *testing.T) {
	cfg = &config.Config{ToolUse: true, SysPrompt: "Answer in Spanish."}
	msg := systemMsg()
	if !strings.Contains(msg, "read_file") || !strings.Contains(msg, "write_file") {
		t.Errorf("tool sys msg is missing tool descriptions: %s", msg)
	}
	if !strings.Contains(msg, "Answer in Spanish.") {
		t.Errorf("user sys prompt was not appended: %s", msg)
	}
	cfg = &config.Config{ToolUse: false}
	if strings.Contains(systemMsg(), "read_file") {
		t.Error("tools advertised with ToolUse disabled")
	}
}

func TestTruncateForDisplay(t *testing.T) {
	short := "short payload"
	if truncateForDisplay(short) != short {
		t.Error("short payload should pass through unchanged")
	}
	long := strings.Repeat("x", displayPayloadLimit+50)
	got := truncateForDisplay(long)
	if len(got) != displayPayloadLimit+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("unexpected truncation: len=%d", len(got))
	}
}
