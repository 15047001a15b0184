// Package kernel implements the bridge to a running Jupyter kernel: code
// execution over the kernel's websocket channels and kernel discovery over
// the server REST API. The wire protocol is a fixed external interface;
// this package consumes it and never extends it.
package kernel

import "context"

// OutputHandlers receives the asynchronous reply messages for one execute
// call. Any handler may be nil. OnDone fires once the kernel returns to
// idle for the request, after all other handlers.
type OutputHandlers struct {
	OnStream      func(text string)
	OnDisplayData func(data map[string]string)
	OnError       func(ename, evalue string, traceback []string)
	OnDone        func()
}

// Bridge executes code strings in a remote kernel. Execute returns as soon
// as the request is on the wire; replies arrive later via the handlers.
type Bridge interface {
	Execute(ctx context.Context, code string, h OutputHandlers) error
	Close() error
}
