package interop

// LogSink receives bridge diagnostics and script console output. Level is
// one of "log", "info", "warn", "error", "debug". Nothing the bridge
// swallows is dropped without reaching the sink exactly once.
type LogSink interface {
	Log(level, message string)
}

// CallKind selects what a generic invocation does with the resolved member.
// The numeric values are part of the script-visible protocol.
type CallKind int32

const (
	CallCtor CallKind = iota
	CallMethod
	CallGetProp
	CallSetProp
	CallGetField
	CallSetField
	CallTypeExists
	CallIsEnumType
)

// InvokeRequest is the generic dispatch envelope. Target is filled in by
// the dispatcher from TargetHandle before the resolver sees the request;
// it is nil for static calls and constructors.
type InvokeRequest struct {
	TypeName     string
	MemberName   string
	Kind         CallKind
	Static       bool
	TargetHandle Handle
	Target       any
	Args         []Value
}

// MemberResolver resolves and executes a host member for a generic
// invocation. It is the host reflection layer's seam: implementations may
// be generated registration tables or a manual registry. Failures (member
// not found, overload mismatch, host errors) are returned as errors, never
// panics.
type MemberResolver interface {
	Invoke(req *InvokeRequest) (Value, error)
}

// Result is what a dispatch returns across the boundary: a value on
// success, or a code and message on failure.
type Result struct {
	Value Value
	Code  int32
	Msg   string
}

// OK wraps a success value.
func OK(v Value) Result { return Result{Value: v} }

// Fail wraps an error into a result.
func Fail(err error) Result {
	return Result{Code: CodeFor(err), Msg: err.Error()}
}

// Backend is the engine-specific half of the bridge. Both the QuickJS and
// the V8 implementations satisfy it; the root package facade selects one
// via build tags.
type Backend interface {
	// Eval evaluates source and returns the stringified completion value.
	// Script exceptions come back wrapped in ErrScriptException with the
	// formatted message+stack text.
	Eval(code, filename string) (string, error)

	// InvokeCallback calls the script function registered at slot with the
	// given arguments. Script exceptions are logged to the sink once and
	// returned as ErrScriptException with a Null value.
	InvokeCallback(slot int32, args []Value) (Value, error)

	// ExecutePendingJobs drains the engine's deferred-callback queue.
	// Per-job exceptions go to the sink; the count includes failed jobs.
	ExecutePendingJobs() (int, error)

	// CallbackCount reports the number of occupied callback slots.
	CallbackCount() (int, error)

	// RunGC triggers an engine garbage collection pass.
	RunGC()

	// Close releases every retained callback slot and tears the engine
	// down. Safe to call twice.
	Close() error
}
