package commands

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacleanhq/dataclean/internal/history"
	"github.com/datacleanhq/dataclean/internal/kernel"
)

const execTestSummary = `[{"id":"f1","name":"df","shape":"10x1","columns":[` +
	`{"id":"c1","name":"a","dtype":"int64","nulls":"0.0%","distinct":10}]}]`

// cannedBridge replies synchronously from canned outputs keyed by the code.
type cannedBridge struct {
	mu    sync.Mutex
	codes []string
}

func (b *cannedBridge) Execute(_ context.Context, code string, h kernel.OutputHandlers) error {
	b.mu.Lock()
	b.codes = append(b.codes, code)
	b.mu.Unlock()

	switch {
	case strings.Contains(code, "dataframe_metadata"):
		h.OnStream(execTestSummary)
	case strings.Contains(code, "boom"):
		h.OnError("ZeroDivisionError", "division by zero", nil)
	default:
		h.OnStream("hello\n")
	}
	h.OnDone()
	return nil
}

func (b *cannedBridge) Close() error { return nil }

func openTestHistory(t *testing.T) *history.Store {
	t.Helper()
	hist, err := history.Open(":memory:", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })
	return hist
}

func TestExecOnce_StreamsOutput(t *testing.T) {
	var buf bytes.Buffer
	hist := openTestHistory(t)

	err := execOnce(context.Background(), &buf, &cannedBridge{}, hist, "print('hi')")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", buf.String())

	entries, err := hist.Recent(context.Background(), "exec", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "print('hi')", entries[0].Code)
	assert.Equal(t, "ok", entries[0].Status)
}

func TestExecOnce_KernelError(t *testing.T) {
	var buf bytes.Buffer
	hist := openTestHistory(t)

	err := execOnce(context.Background(), &buf, &cannedBridge{}, hist, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZeroDivisionError")

	entries, err := hist.Recent(context.Background(), "exec", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].Status)
}

func TestExecOnce_NilHistory(t *testing.T) {
	var buf bytes.Buffer
	err := execOnce(context.Background(), &buf, &cannedBridge{}, nil, "print('hi')")
	require.NoError(t, err)
}

func TestFetchSummary(t *testing.T) {
	frames, err := fetchSummary(context.Background(), &cannedBridge{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "df", frames[0].Name)
}

func TestHandleDotCommand(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("quit exits", func(t *testing.T) {
		var buf bytes.Buffer
		assert.True(t, handleDotCommand(context.Background(), &buf, &cannedBridge{}, logger, ".quit"))
		assert.True(t, handleDotCommand(context.Background(), &buf, &cannedBridge{}, logger, ".exit"))
	})

	t.Run("help prints commands", func(t *testing.T) {
		var buf bytes.Buffer
		assert.False(t, handleDotCommand(context.Background(), &buf, &cannedBridge{}, logger, ".help"))
		assert.Contains(t, buf.String(), ".frames")
	})

	t.Run("frames renders summary", func(t *testing.T) {
		var buf bytes.Buffer
		assert.False(t, handleDotCommand(context.Background(), &buf, &cannedBridge{}, logger, ".frames"))
		assert.Contains(t, buf.String(), "df")
		assert.Contains(t, buf.String(), "(1 frames)")
	})

	t.Run("unknown warns", func(t *testing.T) {
		var buf bytes.Buffer
		assert.False(t, handleDotCommand(context.Background(), &buf, &cannedBridge{}, logger, ".nope"))
		assert.Contains(t, buf.String(), "Unknown command")
	})
}
