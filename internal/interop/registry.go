package interop

import (
	"fmt"
	"sync"
)

// MemberFunc executes a resolved member. target is nil for static members
// and constructors; args carry the marshaled call arguments.
type MemberFunc func(target any, args []Value) (Value, error)

// Registry is a manual MemberResolver: an explicit (type name, member name,
// call kind) table populated at startup. It replaces runtime reflection
// with registration, which is the natural shape for this resolver in Go.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*typeEntry
}

type memberKey struct {
	name string
	kind CallKind
}

type typeEntry struct {
	members map[memberKey]MemberFunc
	isEnum  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*typeEntry)}
}

func (r *Registry) entry(typeName string) *typeEntry {
	e, ok := r.types[typeName]
	if !ok {
		e = &typeEntry{members: make(map[memberKey]MemberFunc)}
		r.types[typeName] = e
	}
	return e
}

// Register adds a member under an explicit call kind.
func (r *Registry) Register(typeName, memberName string, kind CallKind, fn MemberFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(typeName).members[memberKey{memberName, kind}] = fn
}

// RegisterMethod adds a method member.
func (r *Registry) RegisterMethod(typeName, memberName string, fn MemberFunc) {
	r.Register(typeName, memberName, CallMethod, fn)
}

// RegisterCtor adds a constructor. The member name is ignored by callers
// but stored under the empty key for uniformity.
func (r *Registry) RegisterCtor(typeName string, fn MemberFunc) {
	r.Register(typeName, "", CallCtor, fn)
}

// RegisterProperty adds getter and/or setter members. Either may be nil.
func (r *Registry) RegisterProperty(typeName, propName string, get, set MemberFunc) {
	if get != nil {
		r.Register(typeName, propName, CallGetProp, get)
	}
	if set != nil {
		r.Register(typeName, propName, CallSetProp, set)
	}
}

// RegisterField adds field accessors. Either may be nil.
func (r *Registry) RegisterField(typeName, fieldName string, get, set MemberFunc) {
	if get != nil {
		r.Register(typeName, fieldName, CallGetField, get)
	}
	if set != nil {
		r.Register(typeName, fieldName, CallSetField, set)
	}
}

// MarkEnum flags a type so CallIsEnumType queries answer true.
func (r *Registry) MarkEnum(typeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(typeName).isEnum = true
}

// Invoke implements MemberResolver.
func (r *Registry) Invoke(req *InvokeRequest) (Value, error) {
	r.mu.RLock()
	e := r.types[req.TypeName]
	r.mu.RUnlock()

	switch req.Kind {
	case CallTypeExists:
		return Bool(e != nil), nil
	case CallIsEnumType:
		return Bool(e != nil && e.isEnum), nil
	}

	if e == nil {
		return Null, fmt.Errorf("type %q is not registered", req.TypeName)
	}

	key := memberKey{req.MemberName, req.Kind}
	if req.Kind == CallCtor {
		key.name = ""
	}

	r.mu.RLock()
	fn := e.members[key]
	r.mu.RUnlock()
	if fn == nil {
		return Null, fmt.Errorf("type %q has no member %q for call kind %d", req.TypeName, req.MemberName, req.Kind)
	}

	if !req.Static && req.Kind != CallCtor && req.Target == nil && req.TargetHandle != 0 {
		return Null, fmt.Errorf("instance call on %s.%s without a resolved target", req.TypeName, req.MemberName)
	}
	return fn(req.Target, req.Args)
}

var _ MemberResolver = (*Registry)(nil)
