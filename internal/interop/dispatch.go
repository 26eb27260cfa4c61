package interop

import (
	"errors"
	"fmt"
)

// Dispatcher routes calls from script to host. It owns no state of its own
// beyond the shared tables it is constructed with; every invocation is
// stateless given those.
type Dispatcher struct {
	Handles  *HandleTable
	Bindings *BindingTable
	Resolver MemberResolver
	Sink     LogSink
}

// Invoke handles the generic (cold path) dispatch protocol: resolve the
// target handle if the call is instance-scoped, then delegate to the member
// resolver. All failure modes surface as structured results; panics in host
// code are recovered at this boundary so nothing unwinds into the engine.
func (d *Dispatcher) Invoke(req *InvokeRequest) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("%w: panic in %s.%s: %v", ErrHostInvocation, req.TypeName, req.MemberName, p)
			d.logOnce(err)
			res = Fail(err)
		}
	}()

	if d.Resolver == nil {
		return Fail(fmt.Errorf("%w: no member resolver attached", ErrNotConfigured))
	}

	if req.TargetHandle != 0 && !req.Static && req.Kind != CallCtor {
		target, err := d.Handles.Resolve(req.TargetHandle)
		if err != nil {
			return Fail(err)
		}
		req.Target = target
	}

	v, err := d.Resolver.Invoke(req)
	if err != nil {
		err = fmt.Errorf("invoking %s.%s: %w", req.TypeName, req.MemberName, wrapHost(err))
		d.logOnce(err)
		return Fail(err)
	}

	// Returning host arrays requires an explicit per-element protocol the
	// base path does not carry.
	if v.Type == TypeArray {
		v = Null
	}
	return OK(v)
}

// FastInvoke handles the pre-bound fixed-arity hot path: no name lookup, no
// type resolution, just the binding table. The args slice is borrowed from
// the caller's scratch storage and must not be retained.
func (d *Dispatcher) FastInvoke(id int32, args []Value) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("%w: panic in binding %d: %v", ErrHostInvocation, id, p)
			d.logOnce(err)
			res = Fail(err)
		}
	}()

	if d.Bindings == nil || d.Bindings.Len() == 0 {
		return Fail(fmt.Errorf("%w: no bindings registered", ErrNotConfigured))
	}

	fn, err := d.Bindings.Lookup(id)
	if err != nil {
		return Fail(err)
	}

	v, err := fn(args)
	if err != nil {
		err = fmt.Errorf("binding %d: %w", id, wrapHost(err))
		d.logOnce(err)
		return Fail(err)
	}
	if v.Type == TypeArray {
		v = Null
	}
	return OK(v)
}

// ReleaseHandle is the script-side finalizer notification.
func (d *Dispatcher) ReleaseHandle(h Handle) {
	if d.Handles != nil {
		d.Handles.Release(h)
	}
}

// Console routes script console output to the sink.
func (d *Dispatcher) Console(level, message string) {
	if d.Sink != nil {
		d.Sink.Log(level, message)
	}
}

func (d *Dispatcher) logOnce(err error) {
	if d.Sink != nil {
		d.Sink.Log("error", err.Error())
	}
}

// wrapHost tags resolver errors that carry no sentinel as host invocation
// failures, leaving already-classified errors (invalid handle etc.) alone.
func wrapHost(err error) error {
	if errors.Is(err, ErrHostInvocation) || CodeFor(err) != CodeHostError {
		return err
	}
	return fmt.Errorf("%w: %v", ErrHostInvocation, err)
}
