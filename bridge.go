// Package jsbridge embeds a JavaScript engine and bridges it to host Go
// objects: tagged values cross in both directions, host objects travel as
// table handles, script functions as callback slots. QuickJS is the
// default engine; build with -tags v8 for V8.
package jsbridge

import (
	"github.com/keelor/jsbridge/internal/interop"
)

// Re-exported interop types. The internal package holds everything that is
// engine-neutral; these aliases keep call sites on a single import.
type (
	Value          = interop.Value
	Type           = interop.Type
	Handle         = interop.Handle
	CallKind       = interop.CallKind
	InvokeRequest  = interop.InvokeRequest
	MemberResolver = interop.MemberResolver
	MemberFunc     = interop.MemberFunc
	FastFunc       = interop.FastFunc
	Registry       = interop.Registry
	HandleTable    = interop.HandleTable
	LogSink        = interop.LogSink
)

// Value constructors.
var (
	Null = interop.Null

	Bool         = interop.Bool
	Int32        = interop.Int32
	Int64        = interop.Int64
	Float32      = interop.Float32
	Double       = interop.Double
	Number       = interop.Number
	String       = interop.String
	JSONObject   = interop.JSONObject
	ObjectHandle = interop.ObjectHandle
	Vector3      = interop.Vector3
	Vector4      = interop.Vector4
	Color        = interop.Color
)

// Value type tags.
const (
	TypeNull         = interop.TypeNull
	TypeBool         = interop.TypeBool
	TypeInt32        = interop.TypeInt32
	TypeDouble       = interop.TypeDouble
	TypeString       = interop.TypeString
	TypeObjectHandle = interop.TypeObjectHandle
	TypeInt64        = interop.TypeInt64
	TypeFloat32      = interop.TypeFloat32
	TypeArray        = interop.TypeArray
	TypeJSONObject   = interop.TypeJSONObject
	TypeVector3      = interop.TypeVector3
	TypeVector4      = interop.TypeVector4
)

// HintColor marks a Vector4 payload as a color.
const HintColor = interop.HintColor

// Invocation kinds for the generic dispatch path.
const (
	CallCtor       = interop.CallCtor
	CallMethod     = interop.CallMethod
	CallGetProp    = interop.CallGetProp
	CallSetProp    = interop.CallSetProp
	CallGetField   = interop.CallGetField
	CallSetField   = interop.CallSetField
	CallTypeExists = interop.CallTypeExists
	CallIsEnumType = interop.CallIsEnumType
)

// Sentinel errors.
var (
	ErrInvalidContext  = interop.ErrInvalidContext
	ErrInvalidHandle   = interop.ErrInvalidHandle
	ErrNotFunction     = interop.ErrNotFunction
	ErrOutOfMemory     = interop.ErrOutOfMemory
	ErrScriptException = interop.ErrScriptException
	ErrHostInvocation  = interop.ErrHostInvocation
	ErrTableFull       = interop.ErrTableFull
	ErrNotConfigured   = interop.ErrNotConfigured
)

// NewRegistry creates an empty member registry.
func NewRegistry() *Registry { return interop.NewRegistry() }

// Config configures a bridge context. The zero value is usable: default
// limits, a manual registry as the resolver, diagnostics to the global
// zap logger.
type Config struct {
	// Resolver executes generic invocations. When nil, the context's own
	// Registry serves the role.
	Resolver MemberResolver

	// Sink receives console output and bridge diagnostics.
	Sink LogSink

	// MaxArgs bounds the generic invoke path's argument count (default 16).
	MaxArgs int

	// MaxCallbacks is the script callback table capacity (default 4096).
	MaxCallbacks int

	// BufferBytes sizes each transfer buffer (default 64 KiB).
	BufferBytes int

	// ExceptionChars bounds formatted script exception text (default 2048).
	ExceptionChars int
}

// Context is one bridge instance: a script engine plus the shared tables.
// Not safe for concurrent use; one goroutine owns a context.
type Context struct {
	backend  interop.Backend
	handles  *interop.HandleTable
	bindings *interop.BindingTable
	registry *interop.Registry
	sink     interop.LogSink
	closed   bool
}

// New creates a context and installs the script surface (__cs_invoke,
// __zaInvoke0..8, __registerCallback and friends, console).
func New(cfg Config) (*Context, error) {
	sink := cfg.Sink
	if sink == nil {
		sink = NewZapSink(nil)
	}

	registry := interop.NewRegistry()
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = registry
	}

	c := &Context{
		handles:  interop.NewHandleTable(sink),
		bindings: interop.NewBindingTable(),
		registry: registry,
		sink:     sink,
	}
	disp := &interop.Dispatcher{
		Handles:  c.handles,
		Bindings: c.bindings,
		Resolver: resolver,
		Sink:     sink,
	}

	backend, err := newBackend(disp, sink, cfg)
	if err != nil {
		return nil, err
	}
	c.backend = backend
	return c, nil
}

// Valid reports whether the context is live.
func (c *Context) Valid() bool { return c != nil && !c.closed }

func (c *Context) check() error {
	if !c.Valid() {
		return ErrInvalidContext
	}
	return nil
}

// Eval evaluates source and returns the stringified completion value.
// Filename is diagnostic only and may be empty.
func (c *Context) Eval(code, filename string) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	return c.backend.Eval(code, filename)
}

// InvokeCallback calls the script function at the given callback slot.
// Script exceptions are logged to the sink once and returned wrapped in
// ErrScriptException.
func (c *Context) InvokeCallback(slot int32, args ...Value) (Value, error) {
	if err := c.check(); err != nil {
		return Null, err
	}
	return c.backend.InvokeCallback(slot, args)
}

// ExecutePendingJobs drains the engine's deferred-callback queue and
// returns how many jobs ran, failures included.
func (c *Context) ExecutePendingJobs() (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return c.backend.ExecutePendingJobs()
}

// CallbackCount reports the number of occupied script callback slots.
func (c *Context) CallbackCount() (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return c.backend.CallbackCount()
}

// RunGC triggers an engine garbage collection pass.
func (c *Context) RunGC() {
	if c.Valid() {
		c.backend.RunGC()
	}
}

// RegisterObject places a host object in the handle table and returns its
// handle, ready to be passed to script as an object reference.
func (c *Context) RegisterObject(obj any) Handle {
	return c.handles.Register(obj)
}

// ReleaseHandle drops a handle from the table. Releasing an unknown
// handle is a no-op.
func (c *Context) ReleaseHandle(h Handle) {
	c.handles.Release(h)
}

// Handles exposes the handle table for inspection and bulk operations.
func (c *Context) Handles() *HandleTable { return c.handles }

// Registry exposes the context's member registry. Only consulted when no
// custom Resolver was configured.
func (c *Context) Registry() *Registry { return c.registry }

// Bind registers a fast-path function and returns its binding id for use
// with the script-side __zaInvokeN entry points.
func (c *Context) Bind(fn FastFunc) int32 {
	return c.bindings.Bind(fn)
}

// Close clears the callback and handle tables and tears the engine down.
// Safe to call more than once; every other operation fails with
// ErrInvalidContext afterwards.
func (c *Context) Close() error {
	if !c.Valid() {
		return nil
	}
	c.closed = true
	err := c.backend.Close()
	c.handles.Clear()
	return err
}
