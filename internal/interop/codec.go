package interop

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Binary layout of the transfer buffers shared with the script side.
//
// A buffer starts with an 8-byte header: an int32 whose meaning depends on
// direction (argument count, or result error code) and an int32 write
// cursor for the string region. Value slots follow at 32-byte stride:
//
//	[0:4]   tag (Type)
//	[4:8]   aux flags
//	[8:24]  payload (int32/int64/float32/float64/4×float32, or
//	        string absolute offset [8:12] + byte length [12:16])
//	[24:32] hint string offset+length when aux&auxHasHint is set
//
// String payloads live in the region after the last slot and are valid only
// for the duration of a single call; the next call's Reset reclaims them.
// Multi-byte fields are little-endian, which matches the script engine's
// typed-array views on every platform this module targets.
const (
	HeaderSize = 8
	SlotSize   = 32

	// MaxFastArgs is the fixed-arity ceiling of the fast path.
	MaxFastArgs = 8

	auxColorHint int32 = 1
	auxHasHint   int32 = 2
)

// SlotOffset returns the byte offset of slot i.
func SlotOffset(i int) int { return HeaderSize + i*SlotSize }

// Buffer is a Go view over one transfer buffer. StrBase marks where the
// string region begins (right after the slot area).
type Buffer struct {
	B       []byte
	StrBase int
}

// NewBuffer wraps b with room for nslots value slots.
func NewBuffer(b []byte, nslots int) *Buffer {
	return &Buffer{B: b, StrBase: SlotOffset(nslots)}
}

func (b *Buffer) i32(off int) int32     { return int32(binary.LittleEndian.Uint32(b.B[off:])) }
func (b *Buffer) putI32(off int, v int32) {
	binary.LittleEndian.PutUint32(b.B[off:], uint32(v))
}

// Head returns the header word (argument count or error code).
func (b *Buffer) Head() int32 { return b.i32(0) }

// SetHead stores the header word.
func (b *Buffer) SetHead(v int32) { b.putI32(0, v) }

// Reset prepares the buffer for writing: header word and string cursor.
func (b *Buffer) Reset(head int32) {
	b.SetHead(head)
	b.putI32(4, int32(b.StrBase))
}

// Used reports how many leading bytes carry live data: header, slots, and
// the string region up to the write cursor. This is what a transport needs
// to ship; the rest of the buffer is scratch.
func (b *Buffer) Used() int {
	top := b.strTop()
	if top < b.StrBase || top > len(b.B) {
		return b.StrBase
	}
	return top
}

func (b *Buffer) strTop() int       { return int(b.i32(4)) }
func (b *Buffer) setStrTop(top int) { b.putI32(4, int32(top)) }

// putString copies s into the string region and returns its offset, or
// ErrOutOfMemory when it does not fit.
func (b *Buffer) putString(s string) (off, n int, err error) {
	top := b.strTop()
	if top < b.StrBase || top+len(s) > len(b.B) {
		return 0, 0, fmt.Errorf("string of %d bytes does not fit transfer buffer: %w", len(s), ErrOutOfMemory)
	}
	copy(b.B[top:], s)
	b.setStrTop(top + len(s))
	return top, len(s), nil
}

func (b *Buffer) getString(off, n int) string {
	if off < 0 || n < 0 || off+n > len(b.B) {
		return ""
	}
	return string(b.B[off : off+n])
}

// PutValue encodes v into slot i. String payloads are copied into the
// string region; everything else is plain data.
func (b *Buffer) PutValue(i int, v Value) error {
	base := SlotOffset(i)
	if base+SlotSize > b.StrBase {
		return fmt.Errorf("slot %d out of range: %w", i, ErrOutOfMemory)
	}
	// Zero the slot so stale payloads never leak across calls.
	for o := base; o < base+SlotSize; o++ {
		b.B[o] = 0
	}
	b.putI32(base, int32(v.Type))

	var aux int32
	switch v.Type {
	case TypeNull:
	case TypeBool, TypeInt32, TypeObjectHandle, TypeArray:
		b.putI32(base+8, int32(v.I64))
	case TypeInt64:
		binary.LittleEndian.PutUint64(b.B[base+8:], uint64(v.I64))
	case TypeFloat32:
		binary.LittleEndian.PutUint32(b.B[base+8:], math.Float32bits(float32(v.F64)))
	case TypeDouble:
		binary.LittleEndian.PutUint64(b.B[base+8:], math.Float64bits(v.F64))
	case TypeVector3, TypeVector4:
		for k := 0; k < 4; k++ {
			binary.LittleEndian.PutUint32(b.B[base+8+4*k:], math.Float32bits(v.Vec[k]))
		}
		if v.Hint == HintColor {
			aux |= auxColorHint
		}
	case TypeString, TypeJSONObject:
		off, n, err := b.putString(v.Str)
		if err != nil {
			return err
		}
		b.putI32(base+8, int32(off))
		b.putI32(base+12, int32(n))
	default:
		return fmt.Errorf("cannot encode value type %d", int32(v.Type))
	}

	if v.Hint != "" && v.Hint != HintColor {
		off, n, err := b.putString(v.Hint)
		if err != nil {
			return err
		}
		aux |= auxHasHint
		b.putI32(base+24, int32(off))
		b.putI32(base+28, int32(n))
	}
	b.putI32(base+4, aux)
	return nil
}

// GetValue decodes slot i. String payloads are copied out into Go strings,
// so the returned Value stays valid after the buffer is reused.
func (b *Buffer) GetValue(i int) Value {
	base := SlotOffset(i)
	if base+SlotSize > b.StrBase {
		return Null
	}
	tag := Type(b.i32(base))
	aux := b.i32(base + 4)

	var v Value
	v.Type = tag
	switch tag {
	case TypeNull:
	case TypeBool, TypeInt32, TypeObjectHandle, TypeArray:
		v.I64 = int64(b.i32(base + 8))
	case TypeInt64:
		v.I64 = int64(binary.LittleEndian.Uint64(b.B[base+8:]))
	case TypeFloat32:
		v.F64 = float64(math.Float32frombits(binary.LittleEndian.Uint32(b.B[base+8:])))
	case TypeDouble:
		v.F64 = math.Float64frombits(binary.LittleEndian.Uint64(b.B[base+8:]))
	case TypeVector3, TypeVector4:
		for k := 0; k < 4; k++ {
			v.Vec[k] = math.Float32frombits(binary.LittleEndian.Uint32(b.B[base+8+4*k:]))
		}
		if aux&auxColorHint != 0 {
			v.Hint = HintColor
		}
	case TypeString, TypeJSONObject:
		v.Str = b.getString(int(b.i32(base+8)), int(b.i32(base+12)))
	default:
		return Null
	}

	if aux&auxHasHint != 0 {
		v.Hint = b.getString(int(b.i32(base+24)), int(b.i32(base+28)))
	}
	return v
}

// WriteResult encodes a dispatch result: header word carries the code, and
// slot 0 carries the value on success or the message string on failure.
// A message that does not fit is truncated rather than dropped.
func (b *Buffer) WriteResult(res Result) {
	b.Reset(res.Code)
	if res.Code == CodeOK {
		if err := b.PutValue(0, res.Value); err != nil {
			// Result did not fit; degrade to an out-of-memory failure so
			// the script side sees a structured error, not garbage.
			b.Reset(CodeOutOfMemory)
			_ = b.PutValue(0, String("result does not fit transfer buffer"))
		}
		return
	}
	_ = b.PutValue(0, String(Truncate(res.Msg, len(b.B)-b.StrBase)))
}

// Truncate caps s at max bytes, backing off to a rune boundary so a cut
// diagnostic never ships invalid UTF-8.
func Truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// ReadResult decodes what WriteResult (or the script-side equivalent)
// produced.
func (b *Buffer) ReadResult() Result {
	code := b.Head()
	if code == CodeOK {
		return Result{Value: b.GetValue(0)}
	}
	return Result{Code: code, Msg: b.GetValue(0).Str}
}
