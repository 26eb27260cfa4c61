package interop

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

// recordSink collects log entries for assertions.
type recordSink struct {
	mu      sync.Mutex
	entries []string
}

func (s *recordSink) Log(level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, level+": "+message)
}

func (s *recordSink) count(level string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if strings.HasPrefix(e, level+": ") {
			n++
		}
	}
	return n
}

func TestHandleTableRegisterResolve(t *testing.T) {
	tab := NewHandleTable(nil)
	obj := &struct{ name string }{"thing"}

	h := tab.Register(obj)
	if h <= 0 {
		t.Fatalf("handle %d, want positive", h)
	}
	got, err := tab.Resolve(h)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != obj {
		t.Fatal("resolved a different object")
	}
}

func TestHandleTableUniqueWhileLive(t *testing.T) {
	tab := NewHandleTable(nil)
	seen := make(map[Handle]bool)
	for i := 0; i < 1000; i++ {
		h := tab.Register(i)
		if seen[h] {
			t.Fatalf("handle %d issued twice", h)
		}
		seen[h] = true
	}
	if tab.Count() != 1000 {
		t.Fatalf("Count = %d", tab.Count())
	}
}

func TestHandleTableFailsClosed(t *testing.T) {
	tab := NewHandleTable(nil)
	for _, h := range []Handle{0, -1, 12345} {
		if _, err := tab.Resolve(h); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("Resolve(%d): %v, want ErrInvalidHandle", h, err)
		}
	}

	h := tab.Register("x")
	tab.Release(h)
	if _, err := tab.Resolve(h); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("released handle resolved: %v", err)
	}
}

func TestHandleTableReleaseIdempotent(t *testing.T) {
	tab := NewHandleTable(nil)
	h := tab.Register("x")
	tab.Release(h)
	tab.Release(h)
	tab.Release(0)
	tab.Release(-5)
	if tab.Count() != 0 {
		t.Fatalf("Count = %d", tab.Count())
	}
}

func TestHandleTablePeak(t *testing.T) {
	tab := NewHandleTable(nil)
	h1 := tab.Register(1)
	tab.Register(2)
	tab.Release(h1)
	if tab.Peak() != 2 {
		t.Fatalf("Peak = %d, want 2", tab.Peak())
	}
	if tab.Count() != 1 {
		t.Fatalf("Count = %d, want 1", tab.Count())
	}
}

func TestHandleTableLeakWarningOnce(t *testing.T) {
	sink := &recordSink{}
	tab := NewHandleTable(sink)
	for i := 0; i < handleWarnCount+10; i++ {
		tab.Register(i)
	}
	if got := sink.count("warn"); got != 1 {
		t.Fatalf("warn entries = %d, want 1", got)
	}
}

func TestHandleTableClear(t *testing.T) {
	tab := NewHandleTable(nil)
	h := tab.Register("x")
	tab.Clear()
	if tab.Count() != 0 {
		t.Fatalf("Count = %d", tab.Count())
	}
	if _, err := tab.Resolve(h); !errors.Is(err, ErrInvalidHandle) {
		t.Fatal("cleared handle still resolves")
	}
}
