package panel

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/datacleanhq/dataclean/internal/introspect"
	"github.com/datacleanhq/dataclean/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBridge captures execute calls so tests can drive replies by hand.
type fakeBridge struct {
	mu    sync.Mutex
	calls []fakeCall
}

type fakeCall struct {
	code     string
	handlers kernel.OutputHandlers
}

func (f *fakeBridge) Execute(_ context.Context, code string, h kernel.OutputHandlers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{code: code, handlers: h})
	return nil
}

func (f *fakeBridge) Close() error { return nil }

func (f *fakeBridge) call(i int) fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func (f *fakeBridge) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeSink collects injected widget markup keyed by row id.
type fakeSink struct {
	mu       sync.Mutex
	injected map[string]string
}

func newFakeSink() *fakeSink {
	return &fakeSink{injected: make(map[string]string)}
}

func (f *fakeSink) InjectWidget(rowID, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.injected[rowID] = html
}

func (f *fakeSink) get(rowID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.injected[rowID]
	return v, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func visibleState(t *testing.T, frames ...introspect.FrameDescriptor) *State {
	t.Helper()
	s := NewState()
	s.ToggleVisible()
	s.ApplySummary(introspect.Summary{Generation: 1, Frames: frames})
	return s
}

func TestLoader_ColumnWidgetInjectsHTML(t *testing.T) {
	bridge := &fakeBridge{}
	sink := newFakeSink()
	state := visibleState(t, frame("f1", "df", "c1"))
	l := NewLoader(bridge, state, discardLogger(), nil, sink)

	l.LoadColumnWidget(context.Background(), "f1", "c1")
	require.Equal(t, 1, bridge.count())
	assert.Contains(t, bridge.call(0).code, `column_widget("c1")`)

	h := bridge.call(0).handlers
	h.OnDisplayData(map[string]string{"text/html": "<div>widget</div>"})
	h.OnDone()

	got, ok := sink.get("c1")
	require.True(t, ok)
	assert.Equal(t, "<div>widget</div>", got)
}

func TestLoader_PipelineWidgetKeyedByFrame(t *testing.T) {
	bridge := &fakeBridge{}
	sink := newFakeSink()
	state := visibleState(t, frame("f1", "df", "c1"))
	l := NewLoader(bridge, state, discardLogger(), nil, sink)

	l.LoadPipelineWidget(context.Background(), "f1")
	require.Equal(t, 1, bridge.count())
	assert.Contains(t, bridge.call(0).code, "dataframe_widget")

	h := bridge.call(0).handlers
	h.OnDisplayData(map[string]string{"text/html": "<div>pipeline</div>"})
	h.OnDone()

	_, ok := sink.get("f1")
	assert.True(t, ok)
}

func TestLoader_HiddenPanelSkipsRequest(t *testing.T) {
	bridge := &fakeBridge{}
	state := NewState()
	state.ApplySummary(introspect.Summary{Generation: 1, Frames: []introspect.FrameDescriptor{frame("f1", "df", "c1")}})
	l := NewLoader(bridge, state, discardLogger(), nil, newFakeSink())

	l.LoadColumnWidget(context.Background(), "f1", "c1")
	assert.Equal(t, 0, bridge.count())
	// The row stays unloaded so a later visible expansion still works.
	assert.True(t, state.BeginLoad("c1"))
}

func TestLoader_SecondRequestIsNoOp(t *testing.T) {
	bridge := &fakeBridge{}
	state := visibleState(t, frame("f1", "df", "c1"))
	l := NewLoader(bridge, state, discardLogger(), nil, newFakeSink())

	l.LoadColumnWidget(context.Background(), "f1", "c1")
	l.LoadColumnWidget(context.Background(), "f1", "c1")
	assert.Equal(t, 1, bridge.count())
}

func TestLoader_PlainTextFallbackEscaped(t *testing.T) {
	bridge := &fakeBridge{}
	sink := newFakeSink()
	state := visibleState(t, frame("f1", "df", "c1"))
	l := NewLoader(bridge, state, discardLogger(), nil, sink)

	l.LoadColumnWidget(context.Background(), "f1", "c1")
	h := bridge.call(0).handlers
	h.OnDisplayData(map[string]string{"text/plain": "<Widget object>"})
	h.OnDone()

	got, ok := sink.get("c1")
	require.True(t, ok)
	assert.Equal(t, "<pre>&lt;Widget object&gt;</pre>", got)
}

func TestLoader_ReplyAfterRedrawDiscarded(t *testing.T) {
	bridge := &fakeBridge{}
	sink := newFakeSink()
	state := visibleState(t, frame("f1", "df", "c1"))
	l := NewLoader(bridge, state, discardLogger(), nil, sink)

	l.LoadColumnWidget(context.Background(), "f1", "c1")
	require.Equal(t, 1, bridge.count())

	// The summary redraws before the widget reply lands.
	state.ApplySummary(introspect.Summary{Generation: 2, Frames: []introspect.FrameDescriptor{frame("f1", "df", "c1")}})

	h := bridge.call(0).handlers
	h.OnDisplayData(map[string]string{"text/html": "<div>stale</div>"})
	h.OnDone()

	_, ok := sink.get("c1")
	assert.False(t, ok)
}

func TestLoader_KernelErrorLoggedNotRetried(t *testing.T) {
	bridge := &fakeBridge{}
	sink := newFakeSink()
	state := visibleState(t, frame("f1", "df", "c1"))
	l := NewLoader(bridge, state, discardLogger(), nil, sink)

	l.LoadColumnWidget(context.Background(), "f1", "c1")
	h := bridge.call(0).handlers
	h.OnError("ValueError", "boom", nil)
	h.OnDone()

	_, ok := sink.get("c1")
	assert.False(t, ok)

	// No retry until the next redraw resets the loaded flag.
	l.LoadColumnWidget(context.Background(), "f1", "c1")
	assert.Equal(t, 1, bridge.count())
}

func TestLoader_PartialOutputBeforeErrorNotInjected(t *testing.T) {
	bridge := &fakeBridge{}
	sink := newFakeSink()
	state := visibleState(t, frame("f1", "df", "c1"))
	l := NewLoader(bridge, state, discardLogger(), nil, sink)

	l.LoadColumnWidget(context.Background(), "f1", "c1")
	h := bridge.call(0).handlers
	h.OnStream("rendering widget for ")
	h.OnError("ValueError", "boom", nil)
	h.OnDone()

	// The fragment printed before the exception must not replace the
	// row's loading placeholder.
	_, ok := sink.get("c1")
	assert.False(t, ok)
}

func TestLoader_InvalidIDRejected(t *testing.T) {
	bridge := &fakeBridge{}
	state := visibleState(t, frame("f1", "df", "c1"))
	l := NewLoader(bridge, state, discardLogger(), nil, newFakeSink())

	l.LoadColumnWidget(context.Background(), "f1", "c1; import os")
	assert.Equal(t, 0, bridge.count())
}
