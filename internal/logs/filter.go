package logs

import (
	"encoding/json"
	"strings"

	"foldsweep/internal/logging"
)

// Filter selects log entries by structured field. The zero Filter matches
// every line.
type Filter struct {
	RunID     string
	EventType string
	Level     string
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return f.RunID == "" && f.EventType == "" && f.Level == ""
}

// Match reports whether line satisfies the filter. Lines that are not JSON
// objects only match the empty filter. RunID matches as a prefix so short
// IDs from the runs table work.
func (f Filter) Match(line string) bool {
	if f.Empty() {
		return true
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return false
	}
	if f.RunID != "" && !strings.HasPrefix(stringField(entry, logging.FieldRunID), f.RunID) {
		return false
	}
	if f.EventType != "" && stringField(entry, logging.FieldEventType) != f.EventType {
		return false
	}
	if f.Level != "" && !strings.EqualFold(stringField(entry, "level"), f.Level) {
		return false
	}
	return true
}

func stringField(entry map[string]any, key string) string {
	value, _ := entry[key].(string)
	return value
}
