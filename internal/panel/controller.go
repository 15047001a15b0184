package panel

import (
	"context"
	"log/slog"

	"github.com/datacleanhq/dataclean/internal/introspect"
	"github.com/datacleanhq/dataclean/internal/metadata"
)

// Controller ties the state machine to the poller, the widget loader and
// the metadata store. All layout mutations are persisted immediately, and
// every state change invalidates the rendered panel via onUpdate.
type Controller struct {
	state    *State
	poller   *introspect.Poller
	loader   *Loader
	store    metadata.Store
	logger   *slog.Logger
	onUpdate func()
}

// NewController wires the panel. onUpdate is invoked after every visible
// state change; nil disables notifications.
func NewController(state *State, poller *introspect.Poller, loader *Loader, store metadata.Store, logger *slog.Logger, onUpdate func()) *Controller {
	return &Controller{
		state:    state,
		poller:   poller,
		loader:   loader,
		store:    store,
		logger:   logger,
		onUpdate: onUpdate,
	}
}

// State exposes the underlying state for rendering.
func (c *Controller) State() *State {
	return c.state
}

// Init restores the persisted layout and, when the panel starts visible,
// issues the initial poll.
func (c *Controller) Init(ctx context.Context) error {
	doc, err := c.store.Load()
	if err != nil {
		return err
	}

	c.state.SetLayout(Layout{
		Left:      doc.Position.Left,
		Top:       doc.Position.Top,
		Width:     doc.Position.Width,
		Height:    doc.Position.Height,
		Right:     doc.Position.Right,
		Collapsed: doc.Collapsed,
		Visible:   doc.WindowDisplay,
	})

	if doc.WindowDisplay {
		c.poller.Poll(ctx)
	}
	return nil
}

// ToggleVisible shows or hides the panel. Becoming visible triggers exactly
// one refresh poll; hiding changes nothing but the flag, so cached rows
// reappear instantly on the next toggle.
func (c *Controller) ToggleVisible(ctx context.Context) {
	layout := c.state.ToggleVisible()
	c.persist(layout)
	if layout.Visible {
		c.poller.Poll(ctx)
	}
	c.notify()
}

// SetCollapsed switches between the full panel and the header strip.
func (c *Controller) SetCollapsed(collapsed bool) {
	c.persist(c.state.SetCollapsed(collapsed))
	c.notify()
}

// SaveGeometry persists a drag or resize result.
func (c *Controller) SaveGeometry(left, top, width, height, right string) {
	c.persist(c.state.SetGeometry(left, top, width, height, right))
	c.notify()
}

// Refresh forces a summary poll, regardless of host signals.
func (c *Controller) Refresh(ctx context.Context) {
	c.poller.Poll(ctx)
}

// HandleSummary applies a poll result, re-renders, and re-requests widgets
// for rows that were expanded before the redraw. Installed as the poller's
// delivery callback.
func (c *Controller) HandleSummary(ctx context.Context, sum introspect.Summary) {
	reloads := c.state.ApplySummary(sum)
	c.notify()

	for _, r := range reloads {
		if r.ColumnID == "" {
			c.loader.LoadPipelineWidget(ctx, r.FrameID)
		} else {
			c.loader.LoadColumnWidget(ctx, r.FrameID, r.ColumnID)
		}
	}
}

// ExpandColumn opens a column row and loads its widget if this is the first
// expansion since the last redraw.
func (c *Controller) ExpandColumn(ctx context.Context, frameID, columnID string) {
	c.state.Expand(columnID)
	c.notify()
	c.loader.LoadColumnWidget(ctx, frameID, columnID)
}

// ExpandFrame opens a frame's pipeline row and loads its widget once.
func (c *Controller) ExpandFrame(ctx context.Context, frameID string) {
	c.state.Expand(frameID)
	c.notify()
	c.loader.LoadPipelineWidget(ctx, frameID)
}

// CollapseRow closes a row, keeping its widget cached for re-expansion.
func (c *Controller) CollapseRow(id string) {
	c.state.Collapse(id)
	c.notify()
}

// persist writes the layout into document metadata, preserving the
// document's kernel configuration.
func (c *Controller) persist(layout Layout) {
	doc, err := c.store.Load()
	if err != nil {
		c.logger.Warn("layout not persisted, metadata unreadable", "error", err)
		return
	}

	doc.WindowDisplay = layout.Visible
	doc.Collapsed = layout.Collapsed
	doc.Position = metadata.Position{
		Left:   layout.Left,
		Top:    layout.Top,
		Width:  layout.Width,
		Height: layout.Height,
		Right:  layout.Right,
	}

	if err := c.store.Save(doc); err != nil {
		c.logger.Warn("layout not persisted", "error", err)
	}
}

func (c *Controller) notify() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}
