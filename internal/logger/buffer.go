package logger

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"
)

// LogEntry represents a single captured log line
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Session   string    `json:"session,omitempty"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Caller    string    `json:"caller,omitempty"`
}

// LogBuffer is a circular buffer that stores recent log entries
type LogBuffer struct {
	mu       sync.RWMutex
	entries  []LogEntry
	size     int
	writePos int
	count    int
}

var (
	globalBuffer *LogBuffer
	bufferOnce   sync.Once
)

// GetBuffer returns the global log buffer instance
func GetBuffer() *LogBuffer {
	bufferOnce.Do(func() {
		globalBuffer = NewLogBuffer(5000)
	})
	return globalBuffer
}

// NewLogBuffer creates a new log buffer with specified capacity
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 1
	}
	return &LogBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Add adds a log entry to the buffer
func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.writePos] = entry
	b.writePos = (b.writePos + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Query filters buffered entries. Zero fields match everything.
type Query struct {
	Limit        int
	Level        string // minimum level
	Component    string
	Session      string
	SinceMinutes int
}

// GetRecent returns matching entries, most recent first
func (b *LogBuffer) GetRecent(q Query) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 || limit > b.count {
		limit = b.count
	}

	var cutoff time.Time
	if q.SinceMinutes > 0 {
		cutoff = time.Now().Add(-time.Duration(q.SinceMinutes) * time.Minute)
	}
	level := strings.ToUpper(q.Level)

	result := make([]LogEntry, 0, limit)
	for i := 0; i < b.count && len(result) < limit; i++ {
		entry := b.entries[(b.writePos-1-i+b.size)%b.size]

		if !cutoff.IsZero() && entry.Timestamp.Before(cutoff) {
			continue
		}
		if level != "" && !matchesLevel(entry.Level, level) {
			continue
		}
		if q.Component != "" && entry.Component != q.Component {
			continue
		}
		if q.Session != "" && entry.Session != q.Session {
			continue
		}
		result = append(result, entry)
	}

	return result
}

var levelPriority = map[string]int{
	"TRACE": -1,
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
	"FATAL": 4,
	"PANIC": 5,
}

// matchesLevel checks if the entry level matches or exceeds the filter level
func matchesLevel(entryLevel, filterLevel string) bool {
	entryPriority, ok1 := levelPriority[strings.ToUpper(entryLevel)]
	filterPriority, ok2 := levelPriority[filterLevel]
	if !ok1 || !ok2 {
		return strings.EqualFold(entryLevel, filterLevel)
	}
	return entryPriority >= filterPriority
}

// Count returns the current number of entries in the buffer
func (b *LogBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// LogBufferWriter is an io.Writer that captures log output and stores in buffer
type LogBufferWriter struct {
	buffer   *LogBuffer
	original io.Writer
}

// NewLogBufferWriter creates a writer that captures logs to the global buffer
func NewLogBufferWriter(original io.Writer) *LogBufferWriter {
	return &LogBufferWriter{
		buffer:   GetBuffer(),
		original: original,
	}
}

// Write implements io.Writer, parsing zerolog JSON and storing entries
func (w *LogBufferWriter) Write(p []byte) (n int, err error) {
	if w.original != nil {
		n, err = w.original.Write(p)
	} else {
		n = len(p)
	}

	if entry, ok := parseLogLine(p); ok {
		w.buffer.Add(entry)
	}

	return n, err
}

type rawLine struct {
	Level     string `json:"level"`
	Component string `json:"component"`
	Session   string `json:"session"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	Caller    string `json:"caller"`
	Time      string `json:"time"`
}

// parseLogLine decodes one zerolog JSON line
func parseLogLine(p []byte) (LogEntry, bool) {
	var raw rawLine
	if err := json.Unmarshal(p, &raw); err != nil {
		return LogEntry{}, false
	}
	if raw.Message == "" && raw.Level == "" {
		return LogEntry{}, false
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     strings.ToUpper(raw.Level),
		Component: raw.Component,
		Session:   raw.Session,
		Message:   raw.Message,
		Error:     raw.Error,
		Caller:    raw.Caller,
	}
	if t, err := time.Parse(time.RFC3339, raw.Time); err == nil {
		entry.Timestamp = t
	}
	return entry, true
}
