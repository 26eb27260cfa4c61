package interop

import (
	"strings"
	"testing"
)

type counter struct {
	n int32
}

func newCounterRegistry() *Registry {
	r := NewRegistry()
	r.RegisterCtor("Counter", func(_ any, args []Value) (Value, error) {
		return Int32(0), nil
	})
	r.RegisterMethod("Counter", "Add", func(target any, args []Value) (Value, error) {
		c := target.(*counter)
		c.n += int32(args[0].AsInt())
		return Int32(c.n), nil
	})
	r.RegisterProperty("Counter", "Value",
		func(target any, _ []Value) (Value, error) {
			return Int32(target.(*counter).n), nil
		},
		func(target any, args []Value) (Value, error) {
			target.(*counter).n = int32(args[0].AsInt())
			return Null, nil
		})
	r.MarkEnum("Direction")
	return r
}

func TestRegistryMethodDispatch(t *testing.T) {
	r := newCounterRegistry()
	c := &counter{n: 40}

	v, err := r.Invoke(&InvokeRequest{
		TypeName: "Counter", MemberName: "Add", Kind: CallMethod,
		Target: c, Args: []Value{Int32(2)},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if v != Int32(42) || c.n != 42 {
		t.Fatalf("got %v, counter %d", v, c.n)
	}
}

func TestRegistryPropertyGetSet(t *testing.T) {
	r := newCounterRegistry()
	c := &counter{}

	if _, err := r.Invoke(&InvokeRequest{
		TypeName: "Counter", MemberName: "Value", Kind: CallSetProp,
		Target: c, Args: []Value{Int32(9)},
	}); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := r.Invoke(&InvokeRequest{
		TypeName: "Counter", MemberName: "Value", Kind: CallGetProp, Target: c,
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != Int32(9) {
		t.Fatalf("got %v", v)
	}
}

func TestRegistryCtorIgnoresMemberName(t *testing.T) {
	r := newCounterRegistry()
	v, err := r.Invoke(&InvokeRequest{
		TypeName: "Counter", MemberName: "whatever", Kind: CallCtor,
	})
	if err != nil {
		t.Fatalf("ctor: %v", err)
	}
	if v != Int32(0) {
		t.Fatalf("got %v", v)
	}
}

func TestRegistryTypeQueries(t *testing.T) {
	r := newCounterRegistry()

	v, err := r.Invoke(&InvokeRequest{TypeName: "Counter", Kind: CallTypeExists})
	if err != nil || !v.AsBool() {
		t.Fatalf("Counter should exist: %v, %v", v, err)
	}
	v, _ = r.Invoke(&InvokeRequest{TypeName: "Missing", Kind: CallTypeExists})
	if v.AsBool() {
		t.Fatal("Missing should not exist")
	}

	v, _ = r.Invoke(&InvokeRequest{TypeName: "Direction", Kind: CallIsEnumType})
	if !v.AsBool() {
		t.Fatal("Direction should be an enum")
	}
	v, _ = r.Invoke(&InvokeRequest{TypeName: "Counter", Kind: CallIsEnumType})
	if v.AsBool() {
		t.Fatal("Counter should not be an enum")
	}
}

func TestRegistryUnknownTypeAndMember(t *testing.T) {
	r := newCounterRegistry()

	if _, err := r.Invoke(&InvokeRequest{TypeName: "Nope", MemberName: "m", Kind: CallMethod}); err == nil {
		t.Fatal("unknown type did not error")
	}
	_, err := r.Invoke(&InvokeRequest{TypeName: "Counter", MemberName: "Sub", Kind: CallMethod, Target: &counter{}})
	if err == nil || !strings.Contains(err.Error(), "no member") {
		t.Fatalf("unknown member: %v", err)
	}
}

func TestRegistryInstanceCallWithoutTarget(t *testing.T) {
	r := newCounterRegistry()
	_, err := r.Invoke(&InvokeRequest{
		TypeName: "Counter", MemberName: "Add", Kind: CallMethod,
		TargetHandle: 5, Args: []Value{Int32(1)},
	})
	if err == nil {
		t.Fatal("instance call without resolved target did not error")
	}
}
