package panel

import (
	corepanel "github.com/datacleanhq/dataclean/internal/panel"
	"github.com/datacleanhq/dataclean/internal/ui/notifier"
)

// WidgetSink receives rendered widget markup from the loader, caches it for
// full panel re-renders, and pushes it to connected clients.
type WidgetSink struct {
	state    *corepanel.State
	cache    *WidgetCache
	notifier *notifier.Notifier
}

// NewWidgetSink creates the sink wired to the given state and cache.
func NewWidgetSink(state *corepanel.State, cache *WidgetCache, notify *notifier.Notifier) *WidgetSink {
	return &WidgetSink{state: state, cache: cache, notifier: notify}
}

// InjectWidget implements the loader's sink.
func (s *WidgetSink) InjectWidget(rowID, markup string) {
	s.cache.Put(s.state.Generation(), rowID, markup)
	s.notifier.Broadcast(notifier.Event{Kind: notifier.KindWidget, RowID: rowID, HTML: markup})
}
