package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured record with its attributes flattened. Grouped
// keys appear as "group.key".
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every record in memory. Loggers
// derived with With or WithGroup write into the same capture.
type LogCapture struct {
	sink   *logSink
	attrs  []slog.Attr
	prefix string
}

type logSink struct {
	mu      sync.Mutex
	records []LogRecord
	t       *testing.T
}

// NewTestLogger returns a logger that captures at every level and echoes
// records through t.Logf
func NewTestLogger(t *testing.T) (*slog.Logger, *LogCapture) {
	c := &LogCapture{sink: &logSink{t: t}}
	return slog.New(c), c
}

func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(c.attrs)+r.NumAttrs())
	for _, a := range c.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[c.prefix+a.Key] = a.Value.Any()
		return true
	})

	c.sink.mu.Lock()
	c.sink.records = append(c.sink.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	c.sink.mu.Unlock()

	c.sink.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	return nil
}

func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *c
	derived.attrs = append([]slog.Attr(nil), c.attrs...)
	for _, a := range attrs {
		a.Key = c.prefix + a.Key
		derived.attrs = append(derived.attrs, a)
	}
	return &derived
}

func (c *LogCapture) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}
	derived := *c
	derived.prefix = c.prefix + name + "."
	return &derived
}

// Records returns a copy of everything captured so far
func (c *LogCapture) Records() []LogRecord {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	return append([]LogRecord(nil), c.sink.records...)
}

// ByLevel returns the captured records at exactly level
func (c *LogCapture) ByLevel(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range c.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// ContainsMessage reports whether any record message contains msg
func (c *LogCapture) ContainsMessage(msg string) bool {
	for _, r := range c.Records() {
		if strings.Contains(r.Message, msg) {
			return true
		}
	}
	return false
}

// Count returns the number of captured records
func (c *LogCapture) Count() int {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	return len(c.sink.records)
}

// AssertLogContains fails t unless a record at level contains msg
func AssertLogContains(t *testing.T, logs *LogCapture, level slog.Level, msg string) {
	t.Helper()
	records := logs.ByLevel(level)
	for _, r := range records {
		if strings.Contains(r.Message, msg) {
			return
		}
	}
	t.Errorf("no %s record containing %q among %d captured", level, msg, len(records))
}

// AssertNoErrors fails t for every error level record
func AssertNoErrors(t *testing.T, logs *LogCapture) {
	t.Helper()
	for _, r := range logs.ByLevel(slog.LevelError) {
		t.Errorf("unexpected error record %q %v", r.Message, r.Attrs)
	}
}
