//go:build !v8

package jsbridge

import (
	"github.com/keelor/jsbridge/internal/interop"
	"github.com/keelor/jsbridge/internal/qjs"
)

func newBackend(disp *interop.Dispatcher, sink interop.LogSink, cfg Config) (interop.Backend, error) {
	return qjs.New(disp, sink, qjs.Options{
		MaxArgs:        cfg.MaxArgs,
		MaxCallbacks:   cfg.MaxCallbacks,
		BufferBytes:    cfg.BufferBytes,
		ExceptionChars: cfg.ExceptionChars,
	})
}
