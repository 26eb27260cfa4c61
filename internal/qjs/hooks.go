//go:build !v8

package qjs

import (
	"github.com/keelor/jsbridge/internal/interop"
)

// registerHooks installs the Go side of the script surface. The binary
// variants exchange arguments and results through the shared buffers and
// return only a status code; the _b64 variants carry the same encoded
// bytes as base64 strings for the fallback transport.
func (e *Engine) registerHooks() error {
	hooks := map[string]any{
		"__bridge_invoke": func(typeName, memberName string, kind, isStatic, handle int) int {
			return e.hookInvoke(typeName, memberName, kind, isStatic, handle)
		},
		"__bridge_invoke_b64": func(typeName, memberName string, kind, isStatic, handle int, argsB64 string) (string, error) {
			if err := e.fallbackDecodeArgs(argsB64); err != nil {
				e.ret.WriteResult(interop.Fail(err))
			} else {
				e.hookInvoke(typeName, memberName, kind, isStatic, handle)
			}
			return e.fallbackEncodeRet(), nil
		},
		"__bridge_fast": func(bindingID int) int {
			return e.hookFast(bindingID)
		},
		"__bridge_fast_b64": func(bindingID int, argsB64 string) (string, error) {
			if err := e.fallbackDecodeArgs(argsB64); err != nil {
				e.ret.WriteResult(interop.Fail(err))
			} else {
				e.hookFast(bindingID)
			}
			return e.fallbackEncodeRet(), nil
		},
		"__bridge_release": func(handle int) int {
			e.disp.ReleaseHandle(interop.Handle(handle))
			return 0
		},
		"__bridge_log": func(level, message string) int {
			e.disp.Console(level, message)
			return 0
		},
	}
	for name, fn := range hooks {
		if err := e.registerFunc(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// readArgs decodes the argument buffer. The steady state reuses a
// preallocated scratch slice; if host code re-enters the bridge while the
// scratch is live (callback invocation, nested script eval), the inner
// dispatch falls back to a fresh allocation. Either way the slice is valid
// only until the dispatch returns; resolvers that retain arguments must
// copy them.
func (e *Engine) readArgs() (args []interop.Value, scratch bool) {
	argc := int(e.args.Head())
	if argc < 0 || argc > e.opts.MaxArgs {
		argc = 0
	}
	if !e.argScratchBusy {
		e.argScratchBusy = true
		args, scratch = e.argScratch[:argc], true
	} else {
		args = make([]interop.Value, argc)
	}
	for i := range args {
		args[i] = e.args.GetValue(i)
	}
	return args, scratch
}

func (e *Engine) releaseArgs(scratch bool) {
	if scratch {
		e.argScratchBusy = false
	}
}

func (e *Engine) hookInvoke(typeName, memberName string, kind, isStatic, handle int) int {
	args, scratch := e.readArgs()
	req := interop.InvokeRequest{
		TypeName:     typeName,
		MemberName:   memberName,
		Kind:         interop.CallKind(kind),
		Static:       isStatic != 0,
		TargetHandle: interop.Handle(handle),
		Args:         args,
	}
	res := e.disp.Invoke(&req)
	e.releaseArgs(scratch)
	e.ret.WriteResult(res)
	return int(res.Code)
}

func (e *Engine) hookFast(bindingID int) int {
	args, scratch := e.readArgs()
	res := e.disp.FastInvoke(int32(bindingID), args)
	e.releaseArgs(scratch)
	e.ret.WriteResult(res)
	return int(res.Code)
}
