package logger

import (
	"fmt"
	"maps"
	"strings"
	"sync"
)

type testLoggerStorage struct {
	mu      sync.RWMutex
	entries []TestLogEntry
}

// TestLogger records entries in memory so tests can assert on them.
// Loggers derived through WithField(s) share the parent's storage.
type TestLogger struct {
	storage *testLoggerStorage
	fields  Fields
}

type TestLogEntry struct {
	Level   string
	Message string
	Fields  Fields
}

func NewTestLogger() *TestLogger {
	return &TestLogger{
		storage: &testLoggerStorage{},
		fields:  make(Fields),
	}
}

func (l *TestLogger) add(level string, args []any) {
	l.storage.mu.Lock()
	defer l.storage.mu.Unlock()

	fields := make(Fields, len(l.fields))
	maps.Copy(fields, l.fields)

	l.storage.entries = append(l.storage.entries, TestLogEntry{
		Level:   level,
		Message: fmt.Sprint(args...),
		Fields:  fields,
	})
}

func (l *TestLogger) Trace(args ...any) { l.add("trace", args) }
func (l *TestLogger) Debug(args ...any) { l.add("debug", args) }
func (l *TestLogger) Info(args ...any)  { l.add("info", args) }
func (l *TestLogger) Warn(args ...any)  { l.add("warn", args) }
func (l *TestLogger) Error(args ...any) { l.add("error", args) }

// Fatal records the entry without exiting.
func (l *TestLogger) Fatal(args ...any) { l.add("fatal", args) }

func (l *TestLogger) WithFields(fields Fields) Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	maps.Copy(merged, l.fields)
	maps.Copy(merged, fields)

	return &TestLogger{
		storage: l.storage,
		fields:  merged,
	}
}

func (l *TestLogger) WithField(key string, value any) Logger {
	return l.WithFields(Fields{key: value})
}

func (l *TestLogger) WithError(err error) Logger {
	return l.WithFields(Fields{"error": err})
}

// Methods for testing

func (l *TestLogger) GetEntries() []TestLogEntry {
	l.storage.mu.RLock()
	defer l.storage.mu.RUnlock()
	return append([]TestLogEntry{}, l.storage.entries...)
}

func (l *TestLogger) Clear() {
	l.storage.mu.Lock()
	defer l.storage.mu.Unlock()
	l.storage.entries = nil
}

func (l *TestLogger) HasEntry(level, message string) bool {
	for _, entry := range l.GetEntries() {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

func (l *TestLogger) HasEntryContaining(level, substr string) bool {
	for _, entry := range l.GetEntries() {
		if entry.Level == level && strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

func (l *TestLogger) CountEntries() int {
	l.storage.mu.RLock()
	defer l.storage.mu.RUnlock()
	return len(l.storage.entries)
}
