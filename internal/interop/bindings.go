package interop

import (
	"fmt"
	"sync"
)

// FastFunc is a pre-bound host callable for the fixed-arity fast path.
// The args slice is only valid for the duration of the call; implementations
// must copy anything they retain (string payloads included).
type FastFunc func(args []Value) (Value, error)

// BindingTable maps integer binding ids to pre-resolved host callables.
// Ids are assigned sequentially at registration time and are never released
// individually; the table lives for the context lifetime.
type BindingTable struct {
	mu    sync.RWMutex
	funcs []FastFunc
}

// NewBindingTable creates an empty table.
func NewBindingTable() *BindingTable {
	return &BindingTable{}
}

// Bind registers fn and returns its binding id. Intended to be called
// during host initialization, before hot-path invocation begins.
func (b *BindingTable) Bind(fn FastFunc) int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.funcs = append(b.funcs, fn)
	return int32(len(b.funcs) - 1)
}

// Lookup returns the callable for id.
func (b *BindingTable) Lookup(id int32) (FastFunc, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id < 0 || int(id) >= len(b.funcs) {
		return nil, fmt.Errorf("binding id %d not registered: %w", id, ErrHostInvocation)
	}
	return b.funcs[id], nil
}

// Len returns the number of registered bindings.
func (b *BindingTable) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.funcs)
}
