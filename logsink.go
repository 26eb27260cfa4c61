package jsbridge

import (
	"sync"

	"go.uber.org/zap"
)

// LogEntry is one captured sink record.
type LogEntry struct {
	Level   string
	Message string
}

// CaptureSink is a LogSink that records entries in memory. Useful in tests
// and anywhere console output must be inspected after the fact.
type CaptureSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Log appends an entry.
func (s *CaptureSink) Log(level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, LogEntry{Level: level, Message: message})
}

// Entries returns a copy of everything logged so far.
func (s *CaptureSink) Entries() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Reset discards all captured entries.
func (s *CaptureSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// ZapSink adapts a zap logger to the LogSink interface. Script console
// levels map onto the closest zap levels; "log" and "info" both land on
// Info.
type ZapSink struct {
	l *zap.Logger
}

// NewZapSink wraps l. A nil logger falls back to the global zap logger.
func NewZapSink(l *zap.Logger) *ZapSink {
	if l == nil {
		l = zap.L()
	}
	return &ZapSink{l: l}
}

// Log routes one record to the underlying logger.
func (s *ZapSink) Log(level, message string) {
	switch level {
	case "error":
		s.l.Error(message)
	case "warn":
		s.l.Warn(message)
	case "debug":
		s.l.Debug(message)
	default:
		s.l.Info(message)
	}
}
