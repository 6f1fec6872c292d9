// Package logging writes structured JSON log lines, one object per line.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger emits JSON log entries stamped in a fixed location.
// It is safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	loc *time.Location
}

// New returns a Logger writing to w. A nil loc means UTC.
func New(w io.Writer, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.UTC
	}
	return &Logger{w: w, loc: loc}
}

// Stdout returns a Logger writing to os.Stdout.
func Stdout(loc *time.Location) *Logger {
	return New(os.Stdout, loc)
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return New(io.Discard, time.UTC)
}

// Log writes data as a single JSON line. It adds "ts" and, when missing,
// "level" ("error" if status is "error", "info" otherwise).
// The map is modified in place.
func (l *Logger) Log(data map[string]any) {
	data["ts"] = time.Now().In(l.loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		b, _ = json.Marshal(map[string]any{
			"ts":    data["ts"],
			"level": "error",
			"msg":   "failed to marshal log entry",
			"error": err.Error(),
		})
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(b)
}

// Info logs msg with optional fields at info level.
func (l *Logger) Info(msg string, fields map[string]any) {
	entry := clone(fields)
	entry["level"] = "info"
	entry["msg"] = msg
	l.Log(entry)
}

// Error logs msg and err with optional fields at error level.
func (l *Logger) Error(msg string, err error, fields map[string]any) {
	entry := clone(fields)
	entry["level"] = "error"
	entry["msg"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}
	l.Log(entry)
}

// Location returns the timezone used for timestamps.
func (l *Logger) Location() *time.Location {
	return l.loc
}

func clone(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		out[k] = v
	}
	return out
}
