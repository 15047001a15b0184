package introspect

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datacleanhq/dataclean/internal/bus"
	"github.com/datacleanhq/dataclean/internal/kernel"
)

// Summary is one poll result. The generation orders overlapping polls:
// replies carrying a generation older than the latest issued poll are
// discarded instead of racing for the final rendered state.
type Summary struct {
	Generation uint64
	Frames     []FrameDescriptor
}

// Recorder logs each kernel command the poller issues. Implemented by the
// history store; a nil Recorder disables logging.
type Recorder interface {
	Record(ctx context.Context, kind, code, status string, elapsed time.Duration)
}

// Command kinds recorded against the history store.
const (
	KindPoll      = "poll"
	KindBootstrap = "bootstrap"
)

// Poller refreshes the dataframe summary: one fixed introspection command
// per trigger, last (newest-generation) reply wins.
type Poller struct {
	bridge    kernel.Bridge
	logger    *slog.Logger
	rec       Recorder
	onSummary func(Summary)

	gen        atomic.Uint64
	warnedOnce sync.Once
}

// NewPoller creates a Poller delivering results to onSummary. bridge may be
// nil when no kernel is attached; polls are then skipped with one warning.
func NewPoller(bridge kernel.Bridge, logger *slog.Logger, rec Recorder, onSummary func(Summary)) *Poller {
	return &Poller{
		bridge:    bridge,
		logger:    logger,
		rec:       rec,
		onSummary: onSummary,
	}
}

// SetOnSummary replaces the delivery callback. Intended for wiring cycles
// at startup, before the first poll is issued.
func (p *Poller) SetOnSummary(fn func(Summary)) {
	p.onSummary = fn
}

// Generation returns the generation of the most recently issued poll.
func (p *Poller) Generation() uint64 {
	return p.gen.Load()
}

// Poll issues the introspection command. It returns once the request is on
// the wire; the summary is delivered later from the reply handler.
func (p *Poller) Poll(ctx context.Context) {
	if p.bridge == nil {
		p.warnedOnce.Do(func() {
			p.logger.Warn("no kernel attached, summary polling disabled")
		})
		return
	}

	gen := p.gen.Add(1)
	start := time.Now()
	var buf strings.Builder

	err := p.bridge.Execute(ctx, SummarySnippet, kernel.OutputHandlers{
		OnStream: func(text string) {
			buf.WriteString(text)
		},
		OnError: func(ename, evalue string, traceback []string) {
			p.logger.Error("introspection failed in kernel",
				"ename", ename, "evalue", evalue, "traceback", strings.Join(traceback, "\n"))
		},
		OnDone: func() {
			p.finish(ctx, gen, buf.String(), start)
		},
	})
	if err != nil {
		p.logger.Warn("poll not sent", "error", err)
		p.record(ctx, KindPoll, SummarySnippet, "send-failed", time.Since(start))
	}
}

// finish parses a completed reply and delivers it unless superseded.
func (p *Poller) finish(ctx context.Context, gen uint64, text string, start time.Time) {
	if gen != p.gen.Load() {
		p.logger.Debug("stale poll reply discarded", "generation", gen)
		p.record(ctx, KindPoll, SummarySnippet, "stale", time.Since(start))
		return
	}

	frames, err := ParseSummary(text)
	if err != nil {
		// Self-healing: a missing or broken tracker yields garbage once;
		// re-creating it makes the next poll succeed.
		p.logger.Warn("summary reply unparseable, re-initializing tracker")
		p.record(ctx, KindPoll, SummarySnippet, "malformed", time.Since(start))
		p.bootstrap(ctx)
		frames = nil
	} else {
		p.record(ctx, KindPoll, SummarySnippet, "ok", time.Since(start))
	}

	if p.onSummary != nil {
		p.onSummary(Summary{Generation: gen, Frames: frames})
	}
}

// bootstrap re-issues the tracker creation snippet, fire and forget.
func (p *Poller) bootstrap(ctx context.Context) {
	start := time.Now()
	err := p.bridge.Execute(ctx, BootstrapSnippet, kernel.OutputHandlers{
		OnError: func(ename, evalue string, _ []string) {
			p.logger.Error("tracker bootstrap failed", "ename", ename, "evalue", evalue)
		},
		OnDone: func() {
			p.record(ctx, KindBootstrap, BootstrapSnippet, "ok", time.Since(start))
		},
	})
	if err != nil {
		p.logger.Warn("tracker bootstrap not sent", "error", err)
	}
}

func (p *Poller) record(ctx context.Context, kind, code, status string, elapsed time.Duration) {
	if p.rec != nil {
		p.rec.Record(ctx, kind, code, status, elapsed)
	}
}

// Run polls on every host signal until ctx is cancelled. Overlapping
// triggers are allowed to race; generation tagging settles the winner.
func (p *Poller) Run(ctx context.Context, b *bus.Bus) {
	ch := b.Subscribe(bus.CellExecuted, bus.KernelReady, bus.ReloadRequested)
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			p.Poll(ctx)
		}
	}
}
