package panel

import (
	"context"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/datacleanhq/dataclean/internal/introspect"
	"github.com/datacleanhq/dataclean/internal/kernel"
)

// Command kinds recorded against the history store.
const (
	KindColumnWidget   = "column-widget"
	KindPipelineWidget = "pipeline-widget"
)

// Sink receives rendered widget markup for a row. Implemented by the UI
// layer, which patches it into the row's widget container.
type Sink interface {
	InjectWidget(rowID, html string)
}

// Loader issues widget render commands to the kernel and routes the rich
// output back into the panel. Widget commands are side-effecting in the
// kernel, so each row gets at most one request per redraw cycle, failures
// are logged without retrying, and nothing is requested while the panel is
// hidden.
type Loader struct {
	bridge kernel.Bridge
	state  *State
	logger *slog.Logger
	rec    introspect.Recorder
	sink   Sink
}

// NewLoader creates a Loader. rec may be nil to disable history recording.
func NewLoader(bridge kernel.Bridge, state *State, logger *slog.Logger, rec introspect.Recorder, sink Sink) *Loader {
	return &Loader{bridge: bridge, state: state, logger: logger, rec: rec, sink: sink}
}

// LoadColumnWidget requests the interactive widget for one column. The
// widget lands in the row keyed by the column id.
func (l *Loader) LoadColumnWidget(ctx context.Context, frameID, columnID string) {
	code, err := introspect.ColumnWidgetSnippet(frameID, columnID)
	if err != nil {
		l.logger.Warn("column widget skipped", "error", err)
		return
	}
	l.load(ctx, KindColumnWidget, columnID, code)
}

// LoadPipelineWidget requests the cleaning-pipeline widget for one frame.
// The widget lands in the row keyed by the frame id.
func (l *Loader) LoadPipelineWidget(ctx context.Context, frameID string) {
	code, err := introspect.PipelineWidgetSnippet(frameID)
	if err != nil {
		l.logger.Warn("pipeline widget skipped", "error", err)
		return
	}
	l.load(ctx, KindPipelineWidget, frameID, code)
}

func (l *Loader) load(ctx context.Context, kind, rowID, code string) {
	if l.bridge == nil || !l.state.Visible() {
		return
	}
	if !l.state.BeginLoad(rowID) {
		return
	}

	// A redraw between request and reply replaces the row markup; replies
	// from before the redraw must not be injected into the new markup.
	gen := l.state.Generation()
	start := time.Now()

	var rendered strings.Builder
	var plain strings.Builder
	var failed bool

	err := l.bridge.Execute(ctx, code, kernel.OutputHandlers{
		OnStream: func(text string) {
			plain.WriteString(text)
		},
		OnDisplayData: func(data map[string]string) {
			if markup, ok := data["text/html"]; ok {
				rendered.WriteString(markup)
				return
			}
			if text, ok := data["text/plain"]; ok {
				plain.WriteString(text)
			}
		},
		OnError: func(ename, evalue string, _ []string) {
			failed = true
			l.logger.Error("widget render failed in kernel",
				"kind", kind, "row", rowID, "ename", ename, "evalue", evalue)
			l.record(ctx, kind, code, "error", time.Since(start))
		},
		OnDone: func() {
			// Output emitted before the exception is not a widget; the row
			// stays in its loading state.
			if failed {
				return
			}
			l.finish(ctx, kind, rowID, gen, code, rendered.String(), plain.String(), start)
		},
	})
	if err != nil {
		l.logger.Warn("widget request not sent", "kind", kind, "row", rowID, "error", err)
		l.record(ctx, kind, code, "send-failed", time.Since(start))
	}
}

func (l *Loader) finish(ctx context.Context, kind, rowID string, gen uint64, code, rendered, plain string, start time.Time) {
	if l.state.Generation() != gen {
		l.logger.Debug("widget reply discarded after redraw", "kind", kind, "row", rowID)
		l.record(ctx, kind, code, "stale", time.Since(start))
		return
	}

	markup := rendered
	if markup == "" {
		if plain == "" {
			l.record(ctx, kind, code, "empty", time.Since(start))
			return
		}
		markup = "<pre>" + html.EscapeString(plain) + "</pre>"
	}

	l.record(ctx, kind, code, "ok", time.Since(start))
	if l.sink != nil {
		l.sink.InjectWidget(rowID, markup)
	}
}

func (l *Loader) record(ctx context.Context, kind, code, status string, elapsed time.Duration) {
	if l.rec != nil {
		l.rec.Record(ctx, kind, code, status, elapsed)
	}
}
