// Package panel provides the HTTP feature for the dataframe panel: the
// page shell, the SSE update stream and the interaction endpoints.
package panel

import (
	"sync"

	corepanel "github.com/datacleanhq/dataclean/internal/panel"
	"github.com/datacleanhq/dataclean/internal/ui/components"
)

// GeometrySignals is what the client reports after a drag or resize.
// Absent fields mean the dimension did not change.
type GeometrySignals struct {
	Left   string `json:"left"`
	Top    string `json:"top"`
	Width  string `json:"width"`
	Height string `json:"height"`
	Right  string `json:"right"`
}

// WidgetCache holds the rendered widget markup for the current summary
// generation, so re-rendering the panel (collapse, expand, geometry) does
// not blank widgets that already arrived. A new generation starts empty,
// matching the redraw semantics: fresh markup destroys injected content.
type WidgetCache struct {
	mu   sync.Mutex
	gen  uint64
	html map[string]string
}

// NewWidgetCache creates an empty cache.
func NewWidgetCache() *WidgetCache {
	return &WidgetCache{html: make(map[string]string)}
}

// Put stores markup for a row under the given generation.
func (c *WidgetCache) Put(gen uint64, rowID, markup string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(gen)
	c.html[rowID] = markup
}

// Get returns the cached markup for a row, empty if none or the cache
// belongs to an older generation.
func (c *WidgetCache) Get(gen uint64, rowID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(gen)
	return c.html[rowID]
}

func (c *WidgetCache) roll(gen uint64) {
	if gen != c.gen {
		c.gen = gen
		c.html = make(map[string]string)
	}
}

// BuildView assembles the render model from the panel state and the widget
// cache.
func BuildView(state *corepanel.State, cache *WidgetCache) components.PanelView {
	layout := state.Layout()
	gen := state.Generation()

	view := components.PanelView{
		Visible:   layout.Visible,
		Collapsed: layout.Collapsed,
		Left:      layout.Left,
		Top:       layout.Top,
		Width:     layout.Width,
		Height:    layout.Height,
		Right:     layout.Right,
	}

	for _, f := range state.Frames() {
		fv := components.FrameView{
			ID:       f.ID,
			Name:     f.Name,
			Shape:    f.Shape,
			Sampled:  f.Sampled,
			Expanded: state.Row(f.ID).Expanded,
		}
		if fv.Expanded {
			fv.WidgetHTML = cache.Get(gen, f.ID)
		}
		for _, col := range f.Columns {
			cv := components.ColumnView{
				ID:       col.ID,
				FrameID:  f.ID,
				Name:     col.Name,
				Dtype:    col.Dtype,
				NullPct:  col.NullPct,
				Distinct: col.Distinct,
				Expanded: state.Row(col.ID).Expanded,
			}
			if cv.Expanded {
				cv.WidgetHTML = cache.Get(gen, col.ID)
			}
			fv.Columns = append(fv.Columns, cv)
		}
		view.Frames = append(view.Frames, fv)
	}

	return view
}
