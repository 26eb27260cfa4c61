//go:build !v8

package qjs

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/keelor/jsbridge/internal/interop"
)

// InvokeCallback calls the script function registered at slot. Arguments
// travel through the argument buffer; the script side writes its result or
// exception into the return buffer before handing back a status code.
// Script exceptions are reported to the sink exactly once and come back as
// ErrScriptException with a Null value.
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

	if e.useFallback {
		if err := e.invokeCallbackB64(slot); err != nil {
			return interop.Null, err
		}
	} else {
		if _, err := e.evalInt("__bridge_invoke_cb(" + strconv.Itoa(int(slot)) + ")"); err != nil {
			return interop.Null, fmt.Errorf("%w: %v", interop.ErrScriptException, err)
		}
	}

	res := e.ret.ReadResult()
	if res.Code == interop.CodeOK {
		return res.Value, nil
	}
	err := fmt.Errorf("%w: %s", interop.ErrFor(res.Code), res.Msg)
	if res.Code == interop.CodeException {
		e.sink.Log("error", "callback "+strconv.Itoa(int(slot))+" threw: "+res.Msg)
	}
	return interop.Null, err
}

// invokeCallbackB64 runs the fallback transport: args out as base64, the
// "rc:payload" reply decoded back into the return buffer.
func (e *Engine) invokeCallbackB64(slot int32) error {
	argsB64 := base64.StdEncoding.EncodeToString(e.args.B[:e.args.Used()])
	out, err := e.evalString(fmt.Sprintf("__bridge_invoke_cb_b64(%d, %q)", slot, argsB64))
	if err != nil {
		return fmt.Errorf("%w: %v", interop.ErrScriptException, err)
	}
	_, payload, ok := strings.Cut(out, ":")
	if !ok {
		return fmt.Errorf("malformed callback reply %q: %w", out, interop.ErrHostInvocation)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decoding callback reply: %w", err)
	}
	if len(decoded) > len(e.ret.B) {
		return fmt.Errorf("callback reply of %d bytes too large: %w", len(decoded), interop.ErrOutOfMemory)
	}
	copy(e.ret.B, decoded)
	return nil
}

// CallbackCount reports the number of occupied script callback slots.
func (e *Engine) CallbackCount() (int, error) {
	if e.closed {
		return 0, interop.ErrInvalidContext
	}
	return e.evalInt("__bridge_cb_count()")
}
