//go:build v8

package jsbridge

import (
	"github.com/keelor/jsbridge/internal/interop"
	"github.com/keelor/jsbridge/internal/v8engine"
)

func newBackend(disp *interop.Dispatcher, sink interop.LogSink, cfg Config) (interop.Backend, error) {
	return v8engine.New(disp, sink, v8engine.Options{
		MaxArgs:        cfg.MaxArgs,
		MaxCallbacks:   cfg.MaxCallbacks,
		BufferBytes:    cfg.BufferBytes,
		ExceptionChars: cfg.ExceptionChars,
	})
}
