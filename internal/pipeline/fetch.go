package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/datacleanhq/dataclean/internal/introspect"
	"github.com/datacleanhq/dataclean/internal/kernel"
)

// Fetch retrieves a frame's recorded steps from the kernel and blocks until
// the reply completes or ctx expires. Unlike summary polling this is a
// user-initiated request with a caller waiting on the result, so it is
// synchronous by design.
func Fetch(ctx context.Context, bridge kernel.Bridge, frameID string) ([]Step, error) {
	if bridge == nil {
		return nil, kernel.ErrUnavailable
	}

	code, err := introspect.PipelineStepsSnippet(frameID)
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	var kernelErr error
	done := make(chan struct{})

	err = bridge.Execute(ctx, code, kernel.OutputHandlers{
		OnStream: func(text string) {
			buf.WriteString(text)
		},
		OnError: func(ename, evalue string, _ []string) {
			kernelErr = errors.New(ename + ": " + evalue)
		},
		OnDone: func() {
			close(done)
		},
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	if kernelErr != nil {
		return nil, kernelErr
	}
	return ParseSteps(buf.String())
}
