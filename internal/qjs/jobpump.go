//go:build !v8

package qjs

import (
	"github.com/keelor/jsbridge/internal/interop"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
)

// ExecutePendingJobs runs all pending jobs (Promise reactions, queued
// microtasks) in the QuickJS runtime. The modernc.org/quickjs Go wrapper
// never calls JS_ExecutePendingJob, so .then() callbacks would otherwise
// never fire; this drives the C API directly through the cached runtime
// pointer.
//
// The count includes jobs that threw. A throwing job is reported to the
// sink and the pump keeps going, so one bad reaction cannot starve the
// queue.
func (e *Engine) ExecutePendingJobs() (int, error) {
	if e.closed {
		return 0, interop.ErrInvalidContext
	}
	if e.useFallback {
		if !e.warnedFallback {
			e.warnedFallback = true
			e.sink.Log("warn", "job pump unavailable on fallback transport; pending jobs will not run")
		}
		return 0, nil
	}

	count := 0
	for {
		ret := lib.XJS_ExecutePendingJob(e.tls, e.cRuntime, 0)
		if ret == 0 {
			break
		}
		count++
		if ret < 0 {
			e.reportJobError()
		}
	}
	return count, nil
}

// reportJobError pulls the pending exception off the context, stashes it
// as a global, and lets the glue format it (message preferred over stack,
// bounded length). Formatting in script keeps the C surface down to calls
// the rest of the engine already depends on.
func (e *Engine) reportJobError() {
	exc := lib.XJS_GetException(e.tls, e.ctx)

	cName, err := libc.CString("__bridge_job_exc")
	if err != nil {
		lib.XFreeValue(e.tls, e.ctx, exc)
		e.sink.Log("error", "job failed: exception text unavailable")
		return
	}
	glob := lib.XJS_GetGlobalObject(e.tls, e.ctx)
	// JS_SetPropertyStr consumes the exc reference — do not free it after.
	lib.XJS_SetPropertyStr(e.tls, e.ctx, glob, cName, exc)
	lib.XFreeValue(e.tls, e.ctx, glob)
	libc.Xfree(e.tls, cName)

	msg, err := e.evalString("__bridge_format_job_error()")
	if err != nil || msg == "" {
		msg = "unhandled exception in deferred job"
	}
	e.sink.Log("error", "job failed: "+msg)
}
