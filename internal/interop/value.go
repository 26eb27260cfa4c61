package interop

import (
	"fmt"
	"math"
	"strconv"
)

// Type discriminates the payload of a Value. The numeric values are part of
// the binary channel wire format and must not be reordered.
type Type int32

const (
	TypeNull         Type = 0
	TypeBool         Type = 1
	TypeInt32        Type = 2
	TypeDouble       Type = 3
	TypeString       Type = 4
	TypeObjectHandle Type = 5
	TypeInt64        Type = 6
	TypeFloat32      Type = 7
	TypeArray        Type = 8
	TypeJSONObject   Type = 9
	TypeVector3      Type = 10
	TypeVector4      Type = 11
)

// HintColor marks a Vector4 payload as a color so the script side
// reconstructs r/g/b/a field names instead of x/y/z/w.
const HintColor = "color"

// Value is the tagged representation of anything that crosses the
// script/host boundary. Exactly one payload field is meaningful per tag:
//
//	Null                    — none
//	Bool, Int32, Int64,
//	ObjectHandle, Array     — I64 (bool as 0/1, array as length)
//	Double, Float32         — F64
//	String, JSONObject      — Str
//	Vector3, Vector4        — Vec (Vector3 leaves Vec[3] zero)
//
// Hint is optional metadata: HintColor on a Vector4, or a host type name
// attached to an ObjectHandle.
type Value struct {
	Type Type
	I64  int64
	F64  float64
	Str  string
	Vec  [4]float32
	Hint string
}

// Null is the zero Value.
var Null = Value{}

func Bool(b bool) Value {
	if b {
		return Value{Type: TypeBool, I64: 1}
	}
	return Value{Type: TypeBool}
}

func Int32(i int32) Value { return Value{Type: TypeInt32, I64: int64(i)} }

func Int64(i int64) Value { return Value{Type: TypeInt64, I64: i} }

func Float32(f float32) Value { return Value{Type: TypeFloat32, F64: float64(f)} }

func Double(f float64) Value { return Value{Type: TypeDouble, F64: f} }

func String(s string) Value { return Value{Type: TypeString, Str: s} }

func JSONObject(s string) Value { return Value{Type: TypeJSONObject, Str: s} }

func ObjectHandle(h Handle) Value { return Value{Type: TypeObjectHandle, I64: int64(h)} }

func Vector3(x, y, z float32) Value {
	return Value{Type: TypeVector3, Vec: [4]float32{x, y, z, 0}}
}

func Vector4(x, y, z, w float32) Value {
	return Value{Type: TypeVector4, Vec: [4]float32{x, y, z, w}}
}

// Color is a Vector4 carrying the color hint.
func Color(r, g, b, a float32) Value {
	return Value{Type: TypeVector4, Vec: [4]float32{r, g, b, a}, Hint: HintColor}
}

// Number applies the script-side numeric rule: values exactly representable
// as a 32-bit signed integer become Int32, everything else (fractional,
// out of range, NaN, Inf) becomes Double.
func Number(f float64) Value {
	if f >= math.MinInt32 && f <= math.MaxInt32 && f == float64(int32(f)) {
		return Int32(int32(f))
	}
	return Double(f)
}

// AsBool interprets the value loosely as a boolean (Null is false, numbers
// are non-zero tests). Used by resolvers that accept truthy arguments.
func (v Value) AsBool() bool {
	switch v.Type {
	case TypeBool, TypeInt32, TypeInt64, TypeObjectHandle, TypeArray:
		return v.I64 != 0
	case TypeDouble, TypeFloat32:
		return v.F64 != 0
	case TypeString, TypeJSONObject:
		return v.Str != ""
	default:
		return false
	}
}

// AsInt returns the numeric payload as an int64, truncating floats.
func (v Value) AsInt() int64 {
	switch v.Type {
	case TypeDouble, TypeFloat32:
		return int64(v.F64)
	default:
		return v.I64
	}
}

// AsFloat returns the numeric payload as a float64.
func (v Value) AsFloat() float64 {
	switch v.Type {
	case TypeDouble, TypeFloat32:
		return v.F64
	default:
		return float64(v.I64)
	}
}

// Handle returns the object handle payload, or 0 for any other tag.
func (v Value) Handle() Handle {
	if v.Type != TypeObjectHandle {
		return 0
	}
	return Handle(v.I64)
}

// IsNull reports whether the value is the Null tag.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// String renders a diagnostic form; it is not a serialization format.
func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeBool:
		return strconv.FormatBool(v.I64 != 0)
	case TypeInt32, TypeInt64:
		return strconv.FormatInt(v.I64, 10)
	case TypeDouble, TypeFloat32:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case TypeString:
		return strconv.Quote(v.Str)
	case TypeJSONObject:
		return "json:" + v.Str
	case TypeObjectHandle:
		return fmt.Sprintf("handle:%d", v.I64)
	case TypeArray:
		return fmt.Sprintf("array[%d]", v.I64)
	case TypeVector3:
		return fmt.Sprintf("vec3(%g, %g, %g)", v.Vec[0], v.Vec[1], v.Vec[2])
	case TypeVector4:
		if v.Hint == HintColor {
			return fmt.Sprintf("color(%g, %g, %g, %g)", v.Vec[0], v.Vec[1], v.Vec[2], v.Vec[3])
		}
		return fmt.Sprintf("vec4(%g, %g, %g, %g)", v.Vec[0], v.Vec[1], v.Vec[2], v.Vec[3])
	default:
		return fmt.Sprintf("value(type=%d)", int32(v.Type))
	}
}
