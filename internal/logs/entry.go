package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one parsed log line.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	EventType string
	RunID     string
	TrackID   int64
	// Fields holds the remaining attributes.
	Fields map[string]any
}

// Parse decodes a JSON log line. Lines that are not JSON objects are
// rejected.
func Parse(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}

	e := Entry{Fields: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "ts", "time":
			if s, ok := value.(string); ok {
				e.Time, _ = time.Parse(time.RFC3339Nano, s)
			}
		case "level":
			e.Level = strings.ToLower(fmt.Sprint(value))
		case "msg":
			e.Message = fmt.Sprint(value)
		case "component":
			e.Component = fmt.Sprint(value)
		case "event_type":
			e.EventType = fmt.Sprint(value)
		case "run_id":
			e.RunID = fmt.Sprint(value)
		case "track_id":
			if n, ok := value.(float64); ok {
				e.TrackID = int64(n)
			}
		default:
			e.Fields[key] = value
		}
	}
	return e, true
}

// Format renders an entry as a single human-readable line.
func (e Entry) Format() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format(time.DateTime))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(e.Level))
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	if e.EventType != "" {
		fmt.Fprintf(&b, " event=%s", e.EventType)
	}
	if e.TrackID != 0 {
		fmt.Fprintf(&b, " track=%d", e.TrackID)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	RunID     string
	TrackID   int64
	Component string
	EventType string
	// MinLevel is one of debug, info, warn or error.
	MinLevel string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.RunID != "" && !strings.HasPrefix(e.RunID, f.RunID) {
		return false
	}
	if f.TrackID != 0 && e.TrackID != f.TrackID {
		return false
	}
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if floor, ok := levelRank[strings.ToLower(f.MinLevel)]; ok {
		if rank, known := levelRank[e.Level]; known && rank < floor {
			return false
		}
	}
	return true
}
