package logs

import (
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"

	"slidesift/internal/logging"
)

// Record is one decoded line of the JSON run log.
type Record struct {
	Time      string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Component string `json:"component"`
	Stage     string `json:"stage"`
	RunID     string `json:"correlation_id"`
	ClusterID string `json:"cluster_id"`
	EventType string `json:"event_type"`
	Error     string `json:"error"`
	Hint      string `json:"error_hint"`
	// Raw holds the original line.
	Raw string `json:"-"`
}

// ParseRecord decodes a JSON log line. Lines that are not JSON objects are
// reported as not ok.
func ParseRecord(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Record{}, false
	}
	var r Record
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		return Record{}, false
	}
	r.Raw = line
	return r, true
}

// Filter selects records. Empty RunID and Stage match everything; the zero
// MinLevel is info, so debug records need an explicit level.
type Filter struct {
	RunID    string
	Stage    string
	MinLevel slog.Level
}

// Match reports whether r passes the filter.
func (f Filter) Match(r Record) bool {
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.Stage != "" && !strings.EqualFold(r.Stage, f.Stage) {
		return false
	}
	return parseLevel(r.Level) >= f.MinLevel
}

// ParseLevel maps a level name to a slog level; unknown names map to info.
func ParseLevel(name string) slog.Level {
	return parseLevel(name)
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Format renders r as "ts LEVEL [component] stage – message" with the error
// and hint appended when present.
func Format(r Record) string {
	var b strings.Builder
	b.WriteString(r.Time)
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(r.Level))
	if r.Component != "" {
		b.WriteString(" [")
		b.WriteString(r.Component)
		b.WriteByte(']')
	}
	if r.Stage != "" {
		b.WriteByte(' ')
		b.WriteString(r.Stage)
	}
	if r.ClusterID != "" {
		b.WriteString(" · Cluster ")
		b.WriteString(r.ClusterID)
	}
	b.WriteString(" – ")
	b.WriteString(r.Message)
	if r.Error != "" {
		b.WriteString(" (error: ")
		b.WriteString(r.Error)
		b.WriteByte(')')
	}
	if r.Hint != "" {
		b.WriteString(" hint: ")
		b.WriteString(r.Hint)
	}
	return b.String()
}

// DefaultPath is the run log inside logDir.
func DefaultPath(logDir string) string {
	return filepath.Join(logDir, logging.LogFileName)
}
