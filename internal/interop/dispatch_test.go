package interop

import (
	"errors"
	"fmt"
	"testing"
)

// stubResolver returns canned results or errors and records requests.
type stubResolver struct {
	fn   func(req *InvokeRequest) (Value, error)
	last *InvokeRequest
}

func (s *stubResolver) Invoke(req *InvokeRequest) (Value, error) {
	s.last = req
	return s.fn(req)
}

func newTestDispatcher(fn func(req *InvokeRequest) (Value, error)) (*Dispatcher, *stubResolver, *recordSink) {
	sink := &recordSink{}
	res := &stubResolver{fn: fn}
	d := &Dispatcher{
		Handles:  NewHandleTable(sink),
		Bindings: NewBindingTable(),
		Resolver: res,
		Sink:     sink,
	}
	return d, res, sink
}

func TestDispatcherInvokeSuccess(t *testing.T) {
	d, res, _ := newTestDispatcher(func(req *InvokeRequest) (Value, error) {
		return Int32(41 + int32(len(req.Args))), nil
	})
	out := d.Invoke(&InvokeRequest{
		TypeName:   "Demo",
		MemberName: "Next",
		Kind:       CallMethod,
		Static:     true,
		Args:       []Value{Int32(1)},
	})
	if out.Code != CodeOK || out.Value != Int32(42) {
		t.Fatalf("result: %+v", out)
	}
	if res.last.TypeName != "Demo" || res.last.MemberName != "Next" {
		t.Fatalf("request not forwarded: %+v", res.last)
	}
}

func TestDispatcherResolvesTargetHandle(t *testing.T) {
	obj := &struct{ n int }{7}
	d, res, _ := newTestDispatcher(func(req *InvokeRequest) (Value, error) {
		return Null, nil
	})
	h := d.Handles.Register(obj)

	d.Invoke(&InvokeRequest{TypeName: "T", MemberName: "m", Kind: CallMethod, TargetHandle: h})
	if res.last.Target != obj {
		t.Fatal("target not resolved from handle")
	}
}

func TestDispatcherInvalidHandleShortCircuits(t *testing.T) {
	called := false
	d, _, _ := newTestDispatcher(func(req *InvokeRequest) (Value, error) {
		called = true
		return Null, nil
	})
	out := d.Invoke(&InvokeRequest{
		TypeName: "T", MemberName: "m", Kind: CallMethod, TargetHandle: 99999999,
	})
	if out.Code != CodeInvalidHandle {
		t.Fatalf("code = %d, want %d", out.Code, CodeInvalidHandle)
	}
	if called {
		t.Fatal("resolver ran despite dead handle")
	}
}

func TestDispatcherStaticSkipsHandleResolution(t *testing.T) {
	d, res, _ := newTestDispatcher(func(req *InvokeRequest) (Value, error) {
		return Null, nil
	})
	out := d.Invoke(&InvokeRequest{
		TypeName: "T", MemberName: "m", Kind: CallMethod, Static: true, TargetHandle: 99999999,
	})
	if out.Code != CodeOK {
		t.Fatalf("static call failed: %+v", out)
	}
	if res.last.Target != nil {
		t.Fatal("static call resolved a target")
	}
}

func TestDispatcherResolverErrorLoggedOnce(t *testing.T) {
	d, _, sink := newTestDispatcher(func(req *InvokeRequest) (Value, error) {
		return Null, fmt.Errorf("member exploded")
	})
	out := d.Invoke(&InvokeRequest{TypeName: "T", MemberName: "m", Kind: CallMethod, Static: true})
	if out.Code != CodeHostError {
		t.Fatalf("code = %d, want %d", out.Code, CodeHostError)
	}
	if got := sink.count("error"); got != 1 {
		t.Fatalf("error log entries = %d, want 1", got)
	}
}

func TestDispatcherRecoversPanic(t *testing.T) {
	d, _, sink := newTestDispatcher(func(req *InvokeRequest) (Value, error) {
		panic("boom")
	})
	out := d.Invoke(&InvokeRequest{TypeName: "T", MemberName: "m", Kind: CallMethod, Static: true})
	if out.Code != CodeHostError {
		t.Fatalf("code = %d, want %d", out.Code, CodeHostError)
	}
	if sink.count("error") != 1 {
		t.Fatal("panic not logged")
	}
}

func TestDispatcherClassifiedErrorKeepsCode(t *testing.T) {
	d, _, _ := newTestDispatcher(func(req *InvokeRequest) (Value, error) {
		return Null, fmt.Errorf("inner: %w", ErrInvalidHandle)
	})
	out := d.Invoke(&InvokeRequest{TypeName: "T", MemberName: "m", Kind: CallMethod, Static: true})
	if out.Code != CodeInvalidHandle {
		t.Fatalf("code = %d, want %d", out.Code, CodeInvalidHandle)
	}
}

func TestDispatcherArrayResultBecomesNull(t *testing.T) {
	d, _, _ := newTestDispatcher(func(req *InvokeRequest) (Value, error) {
		return Value{Type: TypeArray, I64: 3}, nil
	})
	out := d.Invoke(&InvokeRequest{TypeName: "T", MemberName: "m", Kind: CallMethod, Static: true})
	if out.Code != CodeOK || !out.Value.IsNull() {
		t.Fatalf("array result not nulled: %+v", out)
	}
}

func TestDispatcherNoResolver(t *testing.T) {
	d := &Dispatcher{Handles: NewHandleTable(nil), Bindings: NewBindingTable()}
	out := d.Invoke(&InvokeRequest{TypeName: "T", MemberName: "m", Kind: CallMethod})
	if out.Code != CodeNotConfigured {
		t.Fatalf("code = %d, want %d", out.Code, CodeNotConfigured)
	}
}

func TestFastInvoke(t *testing.T) {
	d, _, _ := newTestDispatcher(func(req *InvokeRequest) (Value, error) { return Null, nil })
	id := d.Bindings.Bind(func(args []Value) (Value, error) {
		return Number(args[0].AsFloat() + args[1].AsFloat()), nil
	})

	out := d.FastInvoke(id, []Value{Int32(2), Int32(3)})
	if out.Code != CodeOK || out.Value != Int32(5) {
		t.Fatalf("result: %+v", out)
	}
}

func TestFastInvokeUnknownBinding(t *testing.T) {
	d, _, _ := newTestDispatcher(func(req *InvokeRequest) (Value, error) { return Null, nil })
	d.Bindings.Bind(func(args []Value) (Value, error) { return Null, nil })

	out := d.FastInvoke(57, nil)
	if out.Code != CodeHostError {
		t.Fatalf("code = %d, want %d", out.Code, CodeHostError)
	}
}

func TestFastInvokeNoBindingsConfigured(t *testing.T) {
	d, _, _ := newTestDispatcher(func(req *InvokeRequest) (Value, error) { return Null, nil })
	out := d.FastInvoke(0, nil)
	if out.Code != CodeNotConfigured {
		t.Fatalf("code = %d, want %d", out.Code, CodeNotConfigured)
	}
}

func TestFastInvokeErrorAndPanic(t *testing.T) {
	d, _, sink := newTestDispatcher(func(req *InvokeRequest) (Value, error) { return Null, nil })
	failing := d.Bindings.Bind(func(args []Value) (Value, error) {
		return Null, errors.New("nope")
	})
	panicking := d.Bindings.Bind(func(args []Value) (Value, error) {
		panic("ouch")
	})

	if out := d.FastInvoke(failing, nil); out.Code != CodeHostError {
		t.Fatalf("failing binding code = %d", out.Code)
	}
	if out := d.FastInvoke(panicking, nil); out.Code != CodeHostError {
		t.Fatalf("panicking binding code = %d", out.Code)
	}
	if sink.count("error") != 2 {
		t.Fatalf("error log entries = %d, want 2", sink.count("error"))
	}
}
