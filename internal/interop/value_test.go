package interop

import (
	"math"
	"testing"
)

func TestNumberClassification(t *testing.T) {
	cases := []struct {
		in   float64
		want Type
	}{
		{0, TypeInt32},
		{42, TypeInt32},
		{-1, TypeInt32},
		{math.MinInt32, TypeInt32},
		{math.MaxInt32, TypeInt32},
		{math.MaxInt32 + 1, TypeDouble},
		{math.MinInt32 - 1, TypeDouble},
		{0.5, TypeDouble},
		{math.NaN(), TypeDouble},
		{math.Inf(1), TypeDouble},
	}
	for _, c := range cases {
		if got := Number(c.in).Type; got != c.want {
			t.Errorf("Number(%v).Type = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if !Bool(true).AsBool() || Bool(false).AsBool() {
		t.Error("bool accessor")
	}
	if Int64(1 << 40).AsInt() != 1<<40 {
		t.Error("int64 accessor")
	}
	if Double(2.5).AsInt() != 2 {
		t.Error("double truncation")
	}
	if Int32(3).AsFloat() != 3.0 {
		t.Error("int-to-float accessor")
	}
	if ObjectHandle(7).Handle() != 7 {
		t.Error("handle accessor")
	}
	if Int32(7).Handle() != 0 {
		t.Error("non-handle tag must yield handle 0")
	}
	if !Null.IsNull() || Int32(0).IsNull() {
		t.Error("null check")
	}
}

func TestColorCarriesHint(t *testing.T) {
	c := Color(1, 0.5, 0, 1)
	if c.Type != TypeVector4 || c.Hint != HintColor {
		t.Fatalf("color value: %+v", c)
	}
	if Vector4(1, 2, 3, 4).Hint != "" {
		t.Fatal("plain vector4 must carry no hint")
	}
}

func TestCodeErrRoundTrip(t *testing.T) {
	errs := []error{
		ErrInvalidContext, ErrInvalidHandle, ErrNotFunction, ErrOutOfMemory,
		ErrScriptException, ErrHostInvocation, ErrTableFull, ErrNotConfigured,
	}
	for _, e := range errs {
		if got := ErrFor(CodeFor(e)); got != e {
			t.Errorf("round trip %v -> %d -> %v", e, CodeFor(e), got)
		}
	}
	if CodeFor(nil) != CodeOK || ErrFor(CodeOK) != nil {
		t.Error("OK mapping")
	}
}
