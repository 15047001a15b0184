// Package panel owns the panel's state machine: which rows are expanded,
// which widgets have been requested, the floating panel's layout, and the
// controller gluing polls, widget loads and layout persistence together.
package panel

import (
	"sync"

	"github.com/datacleanhq/dataclean/internal/introspect"
)

// RowState tracks one summary row. Expanded is whether its detail section
// is open; Loaded is whether a widget request has been issued for it since
// the last redraw. Loaded survives collapse (cache-until-redraw) and is
// cleared by every redraw, because a full markup replacement destroys any
// injected widget content.
type RowState struct {
	Expanded bool
	Loaded   bool
}

// Layout is the floating panel's persisted geometry and visibility.
type Layout struct {
	Left      string `json:"left,omitempty"`
	Top       string `json:"top,omitempty"`
	Width     string `json:"width,omitempty"`
	Height    string `json:"height,omitempty"`
	Right     string `json:"right,omitempty"`
	Collapsed bool   `json:"collapsed"`
	Visible   bool   `json:"visible"`
}

// Reload identifies a widget that must be re-requested after a redraw:
// a pipeline widget when ColumnID is empty, a column widget otherwise.
type Reload struct {
	FrameID  string
	ColumnID string
}

// State is the explicit in-memory expansion/loaded map keyed by descriptor
// id, consulted by the renderer instead of the rendered output itself.
type State struct {
	mu         sync.RWMutex
	rows       map[string]RowState
	frames     []introspect.FrameDescriptor
	generation uint64
	layout     Layout
}

// NewState creates an empty State with the panel hidden.
func NewState() *State {
	return &State{rows: make(map[string]RowState)}
}

// ApplySummary installs a new descriptor list. Expansion state is carried
// over by id (new ids default to collapsed), loaded flags are reset, and
// rows whose ids disappeared are dropped. It returns the widgets that were
// expanded before the redraw and therefore need their content re-requested.
func (s *State) ApplySummary(sum introspect.Summary) []Reload {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = sum.Frames
	s.generation = sum.Generation

	rows := make(map[string]RowState, len(s.rows))
	var reloads []Reload

	keep := func(id string) bool {
		prev, ok := s.rows[id]
		rows[id] = RowState{Expanded: ok && prev.Expanded}
		return ok && prev.Expanded
	}

	for _, f := range sum.Frames {
		if keep(f.ID) {
			reloads = append(reloads, Reload{FrameID: f.ID})
		}
		for _, c := range f.Columns {
			if keep(c.ID) {
				reloads = append(reloads, Reload{FrameID: f.ID, ColumnID: c.ID})
			}
		}
	}

	s.rows = rows
	return reloads
}

// Generation returns the generation of the currently rendered summary.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Frames returns the rendered descriptor list in server order.
func (s *State) Frames() []introspect.FrameDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]introspect.FrameDescriptor, len(s.frames))
	copy(out, s.frames)
	return out
}

// BadgeCount is the number of tracked dataframes; zero hides the badge.
func (s *State) BadgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

// Row returns the state for a row id, zero-valued for unknown ids.
func (s *State) Row(id string) RowState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows[id]
}

// Expand opens a row's detail section. Unknown ids are ignored.
func (s *State) Expand(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[id]; ok {
		r.Expanded = true
		s.rows[id] = r
	}
}

// Collapse closes a row. Widget content and the loaded flag stay in place,
// so re-expanding does not issue another kernel request.
func (s *State) Collapse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[id]; ok {
		r.Expanded = false
		s.rows[id] = r
	}
}

// BeginLoad marks a row's widget as requested. It returns true exactly once
// per redraw cycle, guarding against duplicate side-effecting kernel calls.
func (s *State) BeginLoad(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.Loaded {
		return false
	}
	r.Loaded = true
	s.rows[id] = r
	return true
}

// Layout returns the current panel layout.
func (s *State) Layout() Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout
}

// SetLayout replaces the layout wholesale (used at init).
func (s *State) SetLayout(l Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = l
}

// Visible reports whether the panel is shown; hidden panels suppress
// widget loads entirely.
func (s *State) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout.Visible
}

// ToggleVisible flips visibility and returns the resulting layout.
func (s *State) ToggleVisible() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout.Visible = !s.layout.Visible
	return s.layout
}

// SetCollapsed switches between the full panel and the header-only strip.
func (s *State) SetCollapsed(collapsed bool) Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout.Collapsed = collapsed
	return s.layout
}

// SetGeometry stores drag/resize results. Empty fields leave the current
// value in place, since the client only reports what changed.
func (s *State) SetGeometry(left, top, width, height, right string) Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	if left != "" {
		s.layout.Left = left
	}
	if top != "" {
		s.layout.Top = top
	}
	if width != "" {
		s.layout.Width = width
	}
	if height != "" {
		s.layout.Height = height
	}
	if right != "" {
		s.layout.Right = right
	}
	return s.layout
}
