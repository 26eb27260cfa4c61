package jsbridge

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCaptureSink(t *testing.T) {
	s := &CaptureSink{}
	s.Log("log", "one")
	s.Log("error", "two")

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[1] != (LogEntry{Level: "error", Message: "two"}) {
		t.Fatalf("entry: %+v", entries[1])
	}

	// Entries returns a copy.
	entries[0].Message = "mutated"
	if s.Entries()[0].Message != "one" {
		t.Fatal("Entries aliases internal storage")
	}

	s.Reset()
	if len(s.Entries()) != 0 {
		t.Fatal("Reset did not clear")
	}
}

func TestZapSinkLevelMapping(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewZapSink(zap.New(core))

	s.Log("log", "m1")
	s.Log("info", "m2")
	s.Log("warn", "m3")
	s.Log("error", "m4")
	s.Log("debug", "m5")

	all := logs.All()
	if len(all) != 5 {
		t.Fatalf("records = %d", len(all))
	}
	wantLevels := []zapcore.Level{
		zapcore.InfoLevel, zapcore.InfoLevel, zapcore.WarnLevel,
		zapcore.ErrorLevel, zapcore.DebugLevel,
	}
	for i, rec := range all {
		if rec.Level != wantLevels[i] {
			t.Errorf("record %d level = %v, want %v", i, rec.Level, wantLevels[i])
		}
	}
}

func TestNewZapSinkNilLogger(t *testing.T) {
	s := NewZapSink(nil)
	// Must not panic; routes to the global logger.
	s.Log("info", "hello")
}
