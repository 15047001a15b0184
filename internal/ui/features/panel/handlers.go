package panel

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/datacleanhq/dataclean/internal/bus"
	"github.com/datacleanhq/dataclean/internal/kernel"
	corepanel "github.com/datacleanhq/dataclean/internal/panel"
	"github.com/datacleanhq/dataclean/internal/pipeline"
	"github.com/datacleanhq/dataclean/internal/ui/components"
	"github.com/datacleanhq/dataclean/internal/ui/notifier"
)

const sessionName = "dataclean"

// Handlers provides HTTP handlers for the panel feature.
type Handlers struct {
	ctrl         *corepanel.Controller
	bridge       kernel.Bridge
	events       *bus.Bus
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	cache        *WidgetCache
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	ctrl *corepanel.Controller,
	bridge kernel.Bridge,
	events *bus.Bus,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	cache *WidgetCache,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		ctrl:         ctrl,
		bridge:       bridge,
		events:       events,
		sessionStore: sessionStore,
		notifier:     notify,
		cache:        cache,
		logger:       logger,
	}
}

// PanelPage renders the full page with the launcher and the panel in its
// current state.
func (h *Handlers) PanelPage(w http.ResponseWriter, r *http.Request) {
	h.clientID(w, r)

	view := BuildView(h.ctrl.State(), h.cache)
	if err := components.Page("Dataclean", view).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the SSE endpoint. Panel events re-render the whole panel from
// state; widget events patch only the row's widget container.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	client := h.clientID(w, r)
	h.logger.Debug("update stream connected", "client", client)

	sse := datastar.NewSSE(w, r)
	ch := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("update stream closed", "client", client)
			return
		case ev := <-ch:
			if err := h.patch(sse, ev); err != nil {
				_ = sse.ConsoleError(err)
				return
			}
		}
	}
}

func (h *Handlers) patch(sse *datastar.ServerSentEventGenerator, ev notifier.Event) error {
	switch ev.Kind {
	case notifier.KindWidget:
		return sse.PatchElementTempl(components.Widget(ev.RowID, ev.HTML))
	default:
		view := BuildView(h.ctrl.State(), h.cache)
		if err := sse.PatchElementTempl(components.Launcher(len(view.Frames))); err != nil {
			return err
		}
		return sse.PatchElementTempl(components.Panel(view))
	}
}

// Toggle shows or hides the panel.
func (h *Handlers) Toggle(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ToggleVisible(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Collapse switches between the full panel and the header strip.
// ?to=true collapses, ?to=false restores.
func (h *Handlers) Collapse(w http.ResponseWriter, r *http.Request) {
	h.ctrl.SetCollapsed(r.URL.Query().Get("to") == "true")
	w.WriteHeader(http.StatusNoContent)
}

// Refresh forces a summary poll.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Refresh(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ExpandFrame opens a frame's pipeline row.
func (h *Handlers) ExpandFrame(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ExpandFrame(r.Context(), chi.URLParam(r, "frameID"))
	w.WriteHeader(http.StatusNoContent)
}

// ExpandColumn opens a column row.
func (h *Handlers) ExpandColumn(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ExpandColumn(r.Context(), chi.URLParam(r, "frameID"), chi.URLParam(r, "columnID"))
	w.WriteHeader(http.StatusNoContent)
}

// CollapseRow closes a row, frame or column alike.
func (h *Handlers) CollapseRow(w http.ResponseWriter, r *http.Request) {
	h.ctrl.CollapseRow(chi.URLParam(r, "rowID"))
	w.WriteHeader(http.StatusNoContent)
}

// Geometry persists a drag or resize reported by the client.
func (h *Handlers) Geometry(w http.ResponseWriter, r *http.Request) {
	var signals GeometrySignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.ctrl.SaveGeometry(signals.Left, signals.Top, signals.Width, signals.Height, signals.Right)
	w.WriteHeader(http.StatusNoContent)
}

// Export fetches the frame's recorded pipeline from the kernel and serves
// it as a standalone Python script.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	frameID := chi.URLParam(r, "frameID")

	steps, err := pipeline.Fetch(r.Context(), h.bridge, frameID)
	if err != nil {
		h.logger.Warn("pipeline export failed", "frame", frameID, "error", err)
		http.Error(w, "pipeline unavailable: "+err.Error(), http.StatusBadGateway)
		return
	}

	code, err := pipeline.Export(steps)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/x-python")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "exported_pipeline.py"))
	_, _ = w.Write([]byte(code))
}

// Emit translates a host notification into a bus signal. The notebook
// frontend calls this after cell executions and kernel restarts.
func (h *Handlers) Emit(w http.ResponseWriter, r *http.Request) {
	signal, ok := signalNames[chi.URLParam(r, "signal")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.events.Emit(signal)
	w.WriteHeader(http.StatusAccepted)
}

var signalNames = map[string]bus.Signal{
	"cell-executed": bus.CellExecuted,
	"kernel-ready":  bus.KernelReady,
	"reload":        bus.ReloadRequested,
}

// clientID returns the per-browser id from the session, creating one on
// first contact.
func (h *Handlers) clientID(w http.ResponseWriter, r *http.Request) string {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		return "unknown"
	}

	id, ok := session.Values["client_id"].(string)
	if !ok || id == "" {
		id = uuid.New().String()
		session.Values["client_id"] = id
		if err := session.Save(r, w); err != nil {
			h.logger.Debug("session not saved", "error", err)
		}
	}
	return id
}
