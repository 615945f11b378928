package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeEntry(t *testing.T, line string) LogEntry {
	t.Helper()
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Log line is not valid JSON: %v\n%s", err, line)
	}
	return entry
}

// TestJSONLogger_Output verifies the JSON shape of a log line
func TestJSONLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("graph built", Int("nodes", 42), NodeID(7))

	entry := decodeEntry(t, buf.String())
	if entry.Level != "INFO" {
		t.Errorf("Level = %q, expected INFO", entry.Level)
	}
	if entry.Message != "graph built" {
		t.Errorf("Message = %q", entry.Message)
	}
	if entry.Fields["nodes"] != 42.0 {
		t.Errorf("nodes = %v, expected 42", entry.Fields["nodes"])
	}
	if entry.Fields["node_id"] != 7.0 {
		t.Errorf("node_id = %v, expected 7", entry.Fields["node_id"])
	}
	if entry.Time == "" {
		t.Error("Time should be set")
	}
}

// TestJSONLogger_LevelFiltering verifies entries below the minimum level are
// dropped
func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d:\n%s", len(lines), buf.String())
	}

	logger.SetLevel(DebugLevel)
	buf.Reset()
	logger.Debug("now kept")
	if buf.Len() == 0 {
		t.Error("Debug entry dropped after SetLevel(DebugLevel)")
	}
}

// TestJSONLogger_With verifies child loggers carry their preset fields and
// leave the parent alone
func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("delineate"))
	child.Info("expanding", Uint64("sink_id", 9))

	entry := decodeEntry(t, buf.String())
	if entry.Fields["component"] != "delineate" {
		t.Errorf("component = %v, expected delineate", entry.Fields["component"])
	}
	if entry.Fields["sink_id"] != 9.0 {
		t.Errorf("sink_id = %v, expected 9", entry.Fields["sink_id"])
	}

	buf.Reset()
	logger.Info("parent entry")
	entry = decodeEntry(t, buf.String())
	if _, ok := entry.Fields["component"]; ok {
		t.Error("Parent logger inherited the child's fields")
	}
}

// TestFieldConstructors verifies the error and domain helpers
func TestFieldConstructors(t *testing.T) {
	f := Error(errors.New("boom"))
	if f.Key != "error" || f.Value != "boom" {
		t.Errorf("Error field = %+v", f)
	}
	if f := Error(nil); f.Value != nil {
		t.Errorf("Error(nil) value = %v, expected nil", f.Value)
	}
	if f := Area(1234.5); f.Key != "area" || f.Value != 1234.5 {
		t.Errorf("Area field = %+v", f)
	}
	if f := EdgeID(3); f.Key != "edge_id" || f.Value != uint64(3) {
		t.Errorf("EdgeID field = %+v", f)
	}
}

// TestParseLevel verifies name parsing with the info default
func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", in, got, want)
		}
	}
}
