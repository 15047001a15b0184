package panel

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/datacleanhq/dataclean/internal/introspect"
	"github.com/datacleanhq/dataclean/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	bridge  *fakeBridge
	sink    *fakeSink
	state   *State
	store   *metadata.MemoryStore
	ctrl    *Controller
	updates *atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bridge:  &fakeBridge{},
		sink:    newFakeSink(),
		state:   NewState(),
		store:   metadata.NewMemoryStore(),
		updates: &atomic.Int64{},
	}

	logger := discardLogger()
	loader := NewLoader(f.bridge, f.state, logger, nil, f.sink)
	poller := introspect.NewPoller(f.bridge, logger, nil, func(s introspect.Summary) {
		f.ctrl.HandleSummary(context.Background(), s)
	})
	f.ctrl = NewController(f.state, poller, loader, f.store, logger, func() {
		f.updates.Add(1)
	})
	return f
}

// reply completes the i-th captured kernel call with the given stream text.
func (f *fixture) reply(i int, text string) {
	h := f.bridge.call(i).handlers
	h.OnStream(text)
	h.OnDone()
}

func TestController_InitRestoresLayout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(metadata.Document{
		WindowDisplay: true,
		Collapsed:     true,
		Position:      metadata.Position{Left: "10px", Width: "420px"},
	}))

	require.NoError(t, f.ctrl.Init(context.Background()))

	l := f.state.Layout()
	assert.True(t, l.Visible)
	assert.True(t, l.Collapsed)
	assert.Equal(t, "10px", l.Left)
	assert.Equal(t, "420px", l.Width)

	// A panel restored visible polls immediately.
	assert.Equal(t, 1, f.bridge.count())
}

func TestController_InitHiddenDoesNotPoll(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Init(context.Background()))
	assert.Equal(t, 0, f.bridge.count())
}

func TestController_ToggleVisiblePollsOnceAndPersists(t *testing.T) {
	f := newFixture(t)

	f.ctrl.ToggleVisible(context.Background())
	assert.Equal(t, 1, f.bridge.count())

	doc, err := f.store.Load()
	require.NoError(t, err)
	assert.True(t, doc.WindowDisplay)

	// Hiding persists but does not poll.
	f.ctrl.ToggleVisible(context.Background())
	assert.Equal(t, 1, f.bridge.count())

	doc, err = f.store.Load()
	require.NoError(t, err)
	assert.False(t, doc.WindowDisplay)
}

func TestController_PersistKeepsKernelsConfig(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(metadata.Document{
		KernelsConfig: metadata.KernelsConfig{ServerURL: "http://localhost:8888", KernelID: "k1"},
	}))

	f.ctrl.SaveGeometry("5px", "6px", "", "", "")

	doc, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "k1", doc.KernelsConfig.KernelID)
	assert.Equal(t, "5px", doc.Position.Left)
}

func TestController_SummaryRedrawReloadsExpandedWidgets(t *testing.T) {
	f := newFixture(t)
	f.ctrl.ToggleVisible(context.Background()) // poll #0
	f.reply(0, `[{"id":"f1","name":"df","shape":"3x2","columns":[{"id":"c1","name":"a","dtype":"int64","nulls":"0.0%","distinct":3}]}]`)

	f.ctrl.ExpandColumn(context.Background(), "f1", "c1") // widget call #1
	require.Equal(t, 2, f.bridge.count())
	h := f.bridge.call(1).handlers
	h.OnDisplayData(map[string]string{"text/html": "<div>w1</div>"})
	h.OnDone()
	_, ok := f.sink.get("c1")
	require.True(t, ok)

	// The next cell execution redraws; the expanded widget is re-requested
	// without user interaction.
	f.ctrl.Refresh(context.Background()) // poll #2
	f.reply(2, `[{"id":"f1","name":"df","shape":"4x2","columns":[{"id":"c1","name":"a","dtype":"int64","nulls":"0.0%","distinct":4}]}]`)

	require.Equal(t, 4, f.bridge.count())
	assert.Contains(t, f.bridge.call(3).code, `column_widget("c1")`)
}

func TestController_ExpandLoadsWidgetOnce(t *testing.T) {
	f := newFixture(t)
	f.ctrl.ToggleVisible(context.Background())
	f.reply(0, `[{"id":"f1","name":"df","shape":"3x2","columns":[{"id":"c1","name":"a","dtype":"int64","nulls":"0.0%","distinct":3}]}]`)

	f.ctrl.ExpandColumn(context.Background(), "f1", "c1")
	f.ctrl.CollapseRow("c1")
	f.ctrl.ExpandColumn(context.Background(), "f1", "c1")

	// One poll plus exactly one widget request.
	assert.Equal(t, 2, f.bridge.count())
}

func TestController_ExpandWhileHiddenDefersLoad(t *testing.T) {
	f := newFixture(t)
	f.ctrl.ToggleVisible(context.Background())
	f.reply(0, `[{"id":"f1","name":"df","shape":"3x2","columns":[{"id":"c1","name":"a","dtype":"int64","nulls":"0.0%","distinct":3}]}]`)
	f.ctrl.ToggleVisible(context.Background()) // hide

	f.ctrl.ExpandColumn(context.Background(), "f1", "c1")
	assert.Equal(t, 1, f.bridge.count())
	assert.True(t, f.state.Row("c1").Expanded)
}

func TestController_StateChangesNotify(t *testing.T) {
	f := newFixture(t)
	before := f.updates.Load()

	f.ctrl.SetCollapsed(true)
	f.ctrl.SaveGeometry("1px", "", "", "", "")
	f.ctrl.CollapseRow("missing")

	assert.Equal(t, before+3, f.updates.Load())
}
