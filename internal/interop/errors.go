package interop

import "errors"

// Error codes crossing the script boundary. Negative values mirror the
// bridge's native convention; 0 is success.
const (
	CodeOK            int32 = 0
	CodeInvalidCtx    int32 = -1
	CodeInvalidHandle int32 = -2
	CodeNotFunction   int32 = -3
	CodeOutOfMemory   int32 = -4
	CodeException     int32 = -5
	CodeHostError     int32 = -6
	CodeTableFull     int32 = -7
	CodeNotConfigured int32 = -8
)

var (
	// ErrInvalidContext is returned for operations on a closed or never
	// initialized context.
	ErrInvalidContext = errors.New("invalid or closed context")

	// ErrInvalidHandle is returned when a handle is zero, negative, or not
	// currently registered.
	ErrInvalidHandle = errors.New("invalid object handle")

	// ErrNotFunction is returned when a callback slot is empty or the slot
	// index is out of range.
	ErrNotFunction = errors.New("callback slot is not a function")

	// ErrOutOfMemory is returned when an argument or result does not fit
	// the transfer buffers.
	ErrOutOfMemory = errors.New("out of buffer space")

	// ErrScriptException is returned when script code threw during
	// evaluation or callback invocation.
	ErrScriptException = errors.New("script exception")

	// ErrHostInvocation is returned when the member resolver reported
	// failure or the resolved member panicked.
	ErrHostInvocation = errors.New("host invocation failed")

	// ErrTableFull is returned when the callback table is at capacity.
	ErrTableFull = errors.New("callback table full")

	// ErrNotConfigured is returned when a dispatch path has no resolver or
	// binding table attached. Distinct from "unknown binding": this one is
	// a setup bug, not a script bug.
	ErrNotConfigured = errors.New("dispatch not configured")
)

// CodeFor maps an error to its boundary code. Unrecognized errors map to
// CodeHostError.
func CodeFor(err error) int32 {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidContext):
		return CodeInvalidCtx
	case errors.Is(err, ErrInvalidHandle):
		return CodeInvalidHandle
	case errors.Is(err, ErrNotFunction):
		return CodeNotFunction
	case errors.Is(err, ErrOutOfMemory):
		return CodeOutOfMemory
	case errors.Is(err, ErrScriptException):
		return CodeException
	case errors.Is(err, ErrTableFull):
		return CodeTableFull
	case errors.Is(err, ErrNotConfigured):
		return CodeNotConfigured
	default:
		return CodeHostError
	}
}

// ErrFor maps a boundary code back to its sentinel error. Code 0 maps to
// nil; unknown codes map to ErrHostInvocation.
func ErrFor(code int32) error {
	switch code {
	case CodeOK:
		return nil
	case CodeInvalidCtx:
		return ErrInvalidContext
	case CodeInvalidHandle:
		return ErrInvalidHandle
	case CodeNotFunction:
		return ErrNotFunction
	case CodeOutOfMemory:
		return ErrOutOfMemory
	case CodeException:
		return ErrScriptException
	case CodeTableFull:
		return ErrTableFull
	case CodeNotConfigured:
		return ErrNotConfigured
	default:
		return ErrHostInvocation
	}
}
