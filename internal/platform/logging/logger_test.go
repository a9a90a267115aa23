package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTempLogger(t *testing.T, level string) (*Logger, string) {
	t.Helper()
	dir := t.TempDir()
	logger, err := NewLogger(&Config{Level: level, Dir: dir, Filename: "test.log"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger, filepath.Join(dir, "test.log")
}

func TestLoggerWritesJSONRecords(t *testing.T) {
	logger, path := newTempLogger(t, "info")

	logger.Info("plain message %d", 42)
	logger.InfoTag("Boot", "tagged message")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count = %d, want 2", len(lines))
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if record["msg"] != "plain message 42" {
		t.Fatalf("msg = %v", record["msg"])
	}

	if err := json.Unmarshal([]byte(lines[1]), &record); err != nil {
		t.Fatalf("second line is not JSON: %v", err)
	}
	if record["msg"] != "[Boot] tagged message" {
		t.Fatalf("msg = %v", record["msg"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	logger, path := newTempLogger(t, "warn")

	logger.Debug("dropped")
	logger.Info("also dropped")
	logger.Warn("kept")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "dropped") {
		t.Fatalf("records below warn must be filtered: %s", content)
	}
	if !strings.Contains(content, "kept") {
		t.Fatalf("warn record missing: %s", content)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	logger.WarnTag("Boot", "no panic either")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
