package interop

import (
	"fmt"
	"sync"
)

// Handle identifies a host-owned object from script code. 0 is reserved as
// "no object" and is never issued.
type Handle int32

// Leak-detection thresholds for long-running sessions. Crossing them only
// logs; registration never fails on count.
const (
	handleWarnCount  = 10_000
	handleErrorCount = 100_000
)

// HandleTable maps integer handles to host object references so script code
// can refer to host objects by number. Handles are unique while live and
// never reused while live; released handles fail resolution closed.
//
// The table locks internally; callers do not need external synchronization
// for table access itself (the surrounding engine context still requires
// single-threaded use).
type HandleTable struct {
	mu      sync.Mutex
	objects map[Handle]any
	next    Handle
	peak    int
	sink    LogSink

	warned  bool
	errored bool
}

// NewHandleTable creates an empty table. sink may be nil; it only receives
// leak-threshold diagnostics.
func NewHandleTable(sink LogSink) *HandleTable {
	return &HandleTable{
		objects: make(map[Handle]any),
		next:    1,
		sink:    sink,
	}
}

// Register stores obj and returns a fresh handle. O(1) amortized.
func (t *HandleTable) Register(obj any) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Monotonic assignment guarantees no two live handles alias. On the
	// unlikely wraparound, probe past any still-live survivors.
	h := t.next
	for {
		if h <= 0 {
			h = 1
		}
		if _, live := t.objects[h]; !live {
			break
		}
		h++
	}
	t.next = h + 1
	t.objects[h] = obj

	n := len(t.objects)
	if n > t.peak {
		t.peak = n
	}
	t.reportThresholds(n)
	return h
}

// Resolve returns the object for h. Fails closed: zero, negative, and
// released handles return ErrInvalidHandle, never a stale object.
func (t *HandleTable) Resolve(h Handle) (any, error) {
	if h <= 0 {
		return nil, fmt.Errorf("handle %d: %w", h, ErrInvalidHandle)
	}
	t.mu.Lock()
	obj, ok := t.objects[h]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("handle %d: %w", h, ErrInvalidHandle)
	}
	return obj, nil
}

// Release drops the handle. Idempotent: releasing an unknown or already
// released handle is a no-op.
func (t *HandleTable) Release(h Handle) {
	if h <= 0 {
		return
	}
	t.mu.Lock()
	delete(t.objects, h)
	t.mu.Unlock()
}

// Clear drops every live handle. Used at context teardown.
func (t *HandleTable) Clear() {
	t.mu.Lock()
	t.objects = make(map[Handle]any)
	t.mu.Unlock()
}

// Count returns the number of live handles.
func (t *HandleTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.objects)
}

// Peak returns the highest live-handle count observed.
func (t *HandleTable) Peak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

// reportThresholds logs once per crossing. Called with t.mu held.
func (t *HandleTable) reportThresholds(n int) {
	if t.sink == nil {
		return
	}
	if n >= handleErrorCount && !t.errored {
		t.errored = true
		t.sink.Log("error", fmt.Sprintf("handle table holds %d live handles; the host is leaking object references", n))
	} else if n >= handleWarnCount && !t.warned {
		t.warned = true
		t.sink.Log("warn", fmt.Sprintf("handle table holds %d live handles; check for missing releases", n))
	}
	if n < handleWarnCount {
		t.warned = false
	}
	if n < handleErrorCount {
		t.errored = false
	}
}
