//go:build !v8

// Package qjs implements the script bridge on the QuickJS engine.
//
// The hot path works over two preallocated ArrayBuffers shared between the
// script and Go: script-side glue classifies values and packs them into the
// argument buffer, Go reads the same memory directly through cached C API
// pointers, and results travel back through the return buffer. When the
// pointer extraction fails (the modernc.org/quickjs struct layout is
// unexported and can change between versions), the bridge degrades to a
// base64 transport over the same binary codec.
package qjs

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"

	"github.com/keelor/jsbridge/internal/interop"
)

// Options configure one engine instance.
type Options struct {
	// MaxArgs bounds the generic invoke path's argument count.
	MaxArgs int

	// MaxCallbacks is the script callback table capacity.
	MaxCallbacks int

	// BufferBytes sizes each transfer buffer (header + slots + strings).
	BufferBytes int

	// ExceptionChars bounds formatted script exception text.
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

// Engine is the QuickJS half of the bridge. Not safe for concurrent use;
// one goroutine owns an engine, matching the underlying VM's model.
type Engine struct {
	vm   *quickjs.VM
	disp *interop.Dispatcher
	sink interop.LogSink
	opts Options

	// cached VM internals for direct C API access
	tls      *libc.TLS
	ctx      uintptr
	cRuntime uintptr

	useFallback bool

	args *interop.Buffer
	ret  *interop.Buffer

	// steady-state argument slice, reused across dispatches unless a
	// resolver re-enters the bridge while it is live
	argScratch     []interop.Value
	argScratchBusy bool

	// retained references pinning the shared ArrayBuffers; freed on Close
	argsRef lib.TJSValue
	retRef  lib.TJSValue

	closed         bool
	warnedFallback bool
}

var _ interop.Backend = (*Engine)(nil)

// New creates a VM, installs the bridge surface, and wires the shared
// transfer buffers. The dispatcher must carry the handle table, binding
// table, and sink; the resolver may be attached later.
func New(disp *interop.Dispatcher, sink interop.LogSink, opts Options) (*Engine, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating VM: %w", err)
	}

	e := &Engine{vm: vm, disp: disp, sink: sink, opts: opts.withDefaults()}
	e.argScratch = make([]interop.Value, e.opts.MaxArgs)

	if err := e.extractVMInternals(); err != nil {
		e.useFallback = true
	}

	if err := e.setup(); err != nil {
		vm.Close()
		return nil, err
	}
	return e, nil
}

// extractVMInternals caches tls, ctx, and the runtime pointer out of the
// VM's unexported fields. Layout as of modernc.org/quickjs v0.17.x:
//
//	type VM struct {
//	    cContext uintptr
//	    ...
//	    runtime  *runtime
//	}
//
//	type runtime struct {
//	    cRuntime uintptr
//	    tls      *libc.TLS
//	}
func (e *Engine) extractVMInternals() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic extracting VM internals: %v", p)
		}
	}()

	vmPtr := uintptr(unsafe.Pointer(e.vm))

	// cContext is the first field of VM.
	e.ctx = *(*uintptr)(unsafe.Pointer(vmPtr))
	if e.ctx == 0 {
		return fmt.Errorf("JSContext is nil")
	}

	vmVal := reflect.ValueOf(e.vm).Elem()
	rtField := vmVal.FieldByName("runtime")
	if !rtField.IsValid() || rtField.IsNil() {
		return fmt.Errorf("quickjs.VM missing 'runtime' field")
	}
	rtPtr := rtField.Pointer()
	if rtPtr == 0 {
		return fmt.Errorf("runtime pointer is nil")
	}

	e.cRuntime = *(*uintptr)(unsafe.Pointer(rtPtr))
	if e.cRuntime == 0 {
		return fmt.Errorf("JSRuntime is nil")
	}

	// tls follows cRuntime in the runtime struct.
	e.tls = *(**libc.TLS)(unsafe.Pointer(rtPtr + unsafe.Sizeof(uintptr(0))))
	if e.tls == nil {
		return fmt.Errorf("TLS is nil")
	}

	// Smoke-test the pointers with a trivial call before trusting them.
	glob := lib.XJS_GetGlobalObject(e.tls, e.ctx)
	lib.XFreeValue(e.tls, e.ctx, glob)
	return nil
}

func (e *Engine) setup() error {
	if err := e.registerHooks(); err != nil {
		return err
	}
	if err := e.eval(interop.EncodingJS); err != nil {
		return fmt.Errorf("installing base64 helpers: %w", err)
	}
	js := interop.BridgeScript(e.opts.MaxArgs, e.opts.MaxCallbacks, e.opts.BufferBytes, e.opts.ExceptionChars, !e.useFallback)
	if err := e.eval(js); err != nil {
		return fmt.Errorf("installing bridge glue: %w", err)
	}

	if e.useFallback {
		e.args = interop.NewBuffer(make([]byte, e.opts.BufferBytes), e.opts.MaxArgs)
		e.ret = interop.NewBuffer(make([]byte, e.opts.BufferBytes), 1)
		return nil
	}

	var err error
	e.args, e.argsRef, err = e.mapArrayBuffer("__bridge_args_buf", e.opts.MaxArgs)
	if err != nil {
		return err
	}
	e.ret, e.retRef, err = e.mapArrayBuffer("__bridge_ret_buf", 1)
	if err != nil {
		lib.XFreeValue(e.tls, e.ctx, e.argsRef)
		return err
	}
	return nil
}

// mapArrayBuffer fetches the named global ArrayBuffer and returns a Go
// byte view over its backing store. The returned JSValue reference is
// retained (not freed) so the engine cannot collect the buffer while Go
// holds the view.
func (e *Engine) mapArrayBuffer(globalName string, nslots int) (*interop.Buffer, lib.TJSValue, error) {
	var zero lib.TJSValue

	cName, err := libc.CString(globalName)
	if err != nil {
		return nil, zero, fmt.Errorf("allocating property name: %w", err)
	}
	glob := lib.XJS_GetGlobalObject(e.tls, e.ctx)
	jsVal := lib.XJS_GetPropertyStr(e.tls, e.ctx, glob, cName)
	lib.XFreeValue(e.tls, e.ctx, glob)
	libc.Xfree(e.tls, cName)

	var size lib.Tsize_t
	dataPtr := lib.XJS_GetArrayBuffer(e.tls, e.ctx, uintptr(unsafe.Pointer(&size)), jsVal)
	if dataPtr == 0 || size == 0 {
		lib.XFreeValue(e.tls, e.ctx, jsVal)
		return nil, zero, fmt.Errorf("global %q is not a live ArrayBuffer", globalName)
	}

	b := unsafe.Slice((*byte)(unsafe.Pointer(dataPtr)), size)
	return interop.NewBuffer(b, nslots), jsVal, nil
}

// Eval evaluates source and returns the stringified completion value.
// The filename is diagnostic only; it prefixes exception text.
func (e *Engine) Eval(code, filename string) (string, error) {
	if e.closed {
		return "", interop.ErrInvalidContext
	}
	result, err := e.vm.Eval(code, quickjs.EvalGlobal)
	if err != nil {
		msg := interop.Truncate(err.Error(), e.opts.ExceptionChars)
		if filename != "" {
			msg = filename + ": " + msg
		}
		return "", fmt.Errorf("%w: %s", interop.ErrScriptException, msg)
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// eval evaluates JavaScript and discards the result.
func (e *Engine) eval(js string) error {
	v, err := e.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// evalString evaluates JavaScript and returns the result as a Go string.
func (e *Engine) evalString(js string) (string, error) {
	result, err := e.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// evalInt evaluates JavaScript and returns the result as a Go int.
func (e *Engine) evalInt(js string) (int, error) {
	result, err := e.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return 0, err
	}
	switch v := result.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", result)
	}
}

// registerFunc registers a Go function as a global JavaScript function.
// Multi-value Go returns (T, error) are automatically unwrapped: on success
// returns T, on error throws a TypeError. This is necessary because the
// QuickJS Go wrapper returns multi-value results as JS arrays.
func (e *Engine) registerFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := e.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return e.eval(wrapJS)
}

// RunGC triggers a QuickJS garbage collection pass. A no-op in fallback
// mode, where the runtime pointer is unavailable.
func (e *Engine) RunGC() {
	if e.closed || e.useFallback {
		return
	}
	lib.XJS_RunGC(e.tls, e.cRuntime)
}

// Fallback reports whether the engine runs on the base64 transport
// instead of shared buffers.
func (e *Engine) Fallback() bool { return e.useFallback }

// Close clears the script callback table and tears down the VM. Safe to
// call more than once.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	_ = e.eval("__bridge_cb_clear();")
	e.closed = true
	if !e.useFallback {
		lib.XFreeValue(e.tls, e.ctx, e.argsRef)
		lib.XFreeValue(e.tls, e.ctx, e.retRef)
	}
	e.args = nil
	e.ret = nil
	e.vm.Close()
	return nil
}

func (e *Engine) fallbackEncodeRet() string {
	return base64.StdEncoding.EncodeToString(e.ret.B[:e.ret.Used()])
}

func (e *Engine) fallbackDecodeArgs(b64 string) error {
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
