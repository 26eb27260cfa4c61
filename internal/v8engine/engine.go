//go:build v8

// Package v8engine implements the script bridge on the V8 engine.
//
// It evaluates the same script glue as the QuickJS backend but always runs
// the base64 transport: v8go does not expose ArrayBuffer backing stores,
// so the encoded argument and result bytes cross the boundary as strings.
package v8engine

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	v8 "github.com/tommie/v8go"

	"github.com/keelor/jsbridge/internal/interop"
)

// Options configure one engine instance.
type Options struct {
	MaxArgs        int
	MaxCallbacks   int
	BufferBytes    int
	ExceptionChars int
}

func (o Options) withDefaults() Options {
	if o.MaxArgs <= 0 {
		o.MaxArgs = 16
	}
	if o.MaxCallbacks <= 0 {
		o.MaxCallbacks = 4096
	}
	if o.BufferBytes <= 0 {
		o.BufferBytes = 64 << 10
	}
	if o.ExceptionChars <= 0 {
		o.ExceptionChars = 2048
	}
	return o
}

// Engine is the V8 half of the bridge. Not safe for concurrent use; one
// goroutine owns an engine, matching the isolate's threading model.
type Engine struct {
	iso  *v8.Isolate
	ctx  *v8.Context
	disp *interop.Dispatcher
	sink interop.LogSink
	opts Options

	// Go-side codec scratch; contents travel as base64 strings
	args *interop.Buffer
	ret  *interop.Buffer

	closed bool
}

var _ interop.Backend = (*Engine)(nil)

// New creates an isolate and context and installs the bridge surface.
func New(disp *interop.Dispatcher, sink interop.LogSink, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	iso := v8.NewIsolate()
	ctx := v8.NewContext(iso)

	e := &Engine{
		iso:  iso,
		ctx:  ctx,
		disp: disp,
		sink: sink,
		opts: opts,
		args: interop.NewBuffer(make([]byte, opts.BufferBytes), opts.MaxArgs),
		ret:  interop.NewBuffer(make([]byte, opts.BufferBytes), 1),
	}
	if err := e.setup(); err != nil {
		ctx.Close()
		iso.Dispose()
		return nil, err
	}
	return e, nil
}

func (e *Engine) setup() error {
	if err := e.registerHooks(); err != nil {
		return err
	}
	if _, err := e.ctx.RunScript(interop.EncodingJS, "encoding.js"); err != nil {
		return fmt.Errorf("installing base64 helpers: %w", err)
	}
	js := interop.BridgeScript(e.opts.MaxArgs, e.opts.MaxCallbacks, e.opts.BufferBytes, e.opts.ExceptionChars, false)
	if _, err := e.ctx.RunScript(js, "bridge.js"); err != nil {
		return fmt.Errorf("installing bridge glue: %w", err)
	}
	return nil
}

func (e *Engine) registerHooks() error {
	hooks := map[string]*v8.FunctionTemplate{
		"__bridge_invoke_b64": v8.NewFunctionTemplate(e.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
			args := info.Args()
			if len(args) < 6 {
				e.ret.WriteResult(interop.Fail(fmt.Errorf("malformed invoke: %w", interop.ErrHostInvocation)))
				return e.retAsValue()
			}
			if err := e.decodeArgs(args[5].String()); err != nil {
				e.ret.WriteResult(interop.Fail(err))
				return e.retAsValue()
			}
			req := interop.InvokeRequest{
				TypeName:     args[0].String(),
				MemberName:   args[1].String(),
				Kind:         interop.CallKind(args[2].Int32()),
				Static:       args[3].Int32() != 0,
				TargetHandle: interop.Handle(args[4].Int32()),
				Args:         e.readArgs(),
			}
			e.ret.WriteResult(e.disp.Invoke(&req))
			return e.retAsValue()
		}),
		"__bridge_fast_b64": v8.NewFunctionTemplate(e.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
			args := info.Args()
			if len(args) < 2 {
				e.ret.WriteResult(interop.Fail(fmt.Errorf("malformed fast invoke: %w", interop.ErrHostInvocation)))
				return e.retAsValue()
			}
			if err := e.decodeArgs(args[1].String()); err != nil {
				e.ret.WriteResult(interop.Fail(err))
				return e.retAsValue()
			}
			e.ret.WriteResult(e.disp.FastInvoke(args[0].Int32(), e.readArgs()))
			return e.retAsValue()
		}),
		"__bridge_release": v8.NewFunctionTemplate(e.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
			if args := info.Args(); len(args) > 0 {
				e.disp.ReleaseHandle(interop.Handle(args[0].Int32()))
			}
			return nil
		}),
		"__bridge_log": v8.NewFunctionTemplate(e.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
			if args := info.Args(); len(args) > 1 {
				e.disp.Console(args[0].String(), args[1].String())
			}
			return nil
		}),
	}
	for name, tmpl := range hooks {
		if err := e.ctx.Global().Set(name, tmpl.GetFunction(e.ctx)); err != nil {
			return fmt.Errorf("installing %s: %w", name, err)
		}
	}
	return nil
}

// retAsValue serializes the return buffer for the script side.
func (e *Engine) retAsValue() *v8.Value {
	b64 := base64.StdEncoding.EncodeToString(e.ret.B[:e.ret.Used()])
	val, err := v8.NewValue(e.iso, b64)
	if err != nil {
		return nil
	}
	return val
}

func (e *Engine) decodeArgs(b64 string) error {
	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("decoding argument buffer: %w", err)
	}
	if len(decoded) > len(e.args.B) {
		return fmt.Errorf("argument buffer of %d bytes too large: %w", len(decoded), interop.ErrOutOfMemory)
	}
	copy(e.args.B, decoded)
	return nil
}

// readArgs decodes the argument buffer into a fresh slice. Fresh because
// host code may re-enter the bridge before it is done with the arguments.
func (e *Engine) readArgs() []interop.Value {
	argc := int(e.args.Head())
	if argc < 0 || argc > e.opts.MaxArgs {
		argc = 0
	}
	args := make([]interop.Value, argc)
	for i := range args {
		args[i] = e.args.GetValue(i)
	}
	return args
}

// Eval evaluates source and returns the stringified completion value.
func (e *Engine) Eval(code, filename string) (string, error) {
	if e.closed {
		return "", interop.ErrInvalidContext
	}
	if filename == "" {
		filename = "eval.js"
	}
	result, err := e.ctx.RunScript(code, filename)
	if err != nil {
		msg := interop.Truncate(err.Error(), e.opts.ExceptionChars)
		return "", fmt.Errorf("%w: %s", interop.ErrScriptException, msg)
	}
	if result == nil || result.IsUndefined() {
		return "", nil
	}
	return result.String(), nil
}

// InvokeCallback calls the script function registered at slot via the
// base64 transport. Script exceptions are reported to the sink once and
// come back as ErrScriptException with a Null value.
func (e *Engine) InvokeCallback(slot int32, args []interop.Value) (interop.Value, error) {
	if e.closed {
		return interop.Null, interop.ErrInvalidContext
	}
	if len(args) > e.opts.MaxArgs {
		return interop.Null, fmt.Errorf("callback called with %d arguments (max %d): %w",
			len(args), e.opts.MaxArgs, interop.ErrOutOfMemory)
	}

	e.args.Reset(int32(len(args)))
	for i, a := range args {
		if err := e.args.PutValue(i, a); err != nil {
			return interop.Null, err
		}
	}

	argsB64 := base64.StdEncoding.EncodeToString(e.args.B[:e.args.Used()])
	script := fmt.Sprintf("__bridge_invoke_cb_b64(%d, %q)", slot, argsB64)
	out, err := e.ctx.RunScript(script, "bridge.js")
	if err != nil {
		return interop.Null, fmt.Errorf("%w: %v", interop.ErrScriptException, err)
	}
	_, payload, ok := strings.Cut(out.String(), ":")
	if !ok {
		return interop.Null, fmt.Errorf("malformed callback reply: %w", interop.ErrHostInvocation)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return interop.Null, fmt.Errorf("decoding callback reply: %w", err)
	}
	if len(decoded) > len(e.ret.B) {
		return interop.Null, fmt.Errorf("callback reply of %d bytes too large: %w", len(decoded), interop.ErrOutOfMemory)
	}
	copy(e.ret.B, decoded)

	res := e.ret.ReadResult()
	if res.Code == interop.CodeOK {
		return res.Value, nil
	}
	resErr := fmt.Errorf("%w: %s", interop.ErrFor(res.Code), res.Msg)
	if res.Code == interop.CodeException {
		e.sink.Log("error", "callback "+strconv.Itoa(int(slot))+" threw: "+res.Msg)
	}
	return interop.Null, resErr
}

// ExecutePendingJobs pumps the V8 microtask queue. V8 does not report how
// many microtasks a checkpoint ran, so the count is always zero.
func (e *Engine) ExecutePendingJobs() (int, error) {
	if e.closed {
		return 0, interop.ErrInvalidContext
	}
	e.ctx.PerformMicrotaskCheckpoint()
	return 0, nil
}

// CallbackCount reports the number of occupied script callback slots.
func (e *Engine) CallbackCount() (int, error) {
	if e.closed {
		return 0, interop.ErrInvalidContext
	}
	val, err := e.ctx.RunScript("__bridge_cb_count()", "bridge.js")
	if err != nil {
		return 0, err
	}
	return int(val.Int32()), nil
}

// RunGC is a no-op: v8go exposes no explicit collection trigger, the
// isolate collects on its own schedule.
func (e *Engine) RunGC() {}

// Close clears the script callback table and tears down the isolate.
// Safe to call more than once.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	_, _ = e.ctx.RunScript("__bridge_cb_clear()", "bridge.js")
	e.closed = true
	e.ctx.Close()
	e.iso.Dispose()
	return nil
}
