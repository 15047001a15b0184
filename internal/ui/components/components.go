// Package components renders the panel's HTML fragments. Components are
// plain templ.Component values so handlers can stream them over SSE with
// PatchElementTempl; element ids are stable because patching morphs by id.
package components

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// ColumnView is the render model for one column row.
type ColumnView struct {
	ID         string
	FrameID    string
	Name       string
	Dtype      string
	NullPct    string
	Distinct   int
	Expanded   bool
	WidgetHTML string
}

// FrameView is the render model for one dataframe section.
type FrameView struct {
	ID         string
	Name       string
	Shape      string
	Sampled    bool
	Expanded   bool
	WidgetHTML string
	Columns    []ColumnView
}

// PanelView is the render model for the whole panel.
type PanelView struct {
	Visible   bool
	Collapsed bool
	Left      string
	Top       string
	Width     string
	Height    string
	Right     string
	Frames    []FrameView
}

const datastarCDN = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"

// Page renders the full HTML document: launcher, panel and the SSE hookup.
func Page(title string, view PanelView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<script type="module" src="%s"></script>
<link rel="stylesheet" href="/static/panel.css">
<script src="/static/panel.js" defer></script>
</head>
<body data-on-load="@get('/updates')">
`, html.EscapeString(title), datastarCDN)
		if err := Launcher(len(view.Frames)).Render(ctx, w); err != nil {
			return err
		}
		if err := Panel(view).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

// Launcher renders the toolbar button with the tracked-dataframe badge.
// The badge is omitted entirely at zero.
func Launcher(count int) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		fmt.Fprint(w, `<button id="dataclean-launcher" class="dataclean-launcher" data-on-click="@post('/panel/toggle')">Dataclean`)
		if count > 0 {
			fmt.Fprintf(w, `<span class="dataclean-badge">%d</span>`, count)
		}
		_, err := io.WriteString(w, `</button>`)
		return err
	})
}

// Panel renders the floating panel. Hidden panels render as an empty shell
// keeping the element id alive for later patches.
func Panel(view PanelView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !view.Visible {
			_, err := io.WriteString(w, `<div id="dataclean-panel" class="dataclean-panel dataclean-hidden"></div>`)
			return err
		}

		class := "dataclean-panel"
		if view.Collapsed {
			class += " dataclean-collapsed"
		}
		fmt.Fprintf(w, `<div id="dataclean-panel" class="%s" style="%s">`, class, panelStyle(view))

		collapseTarget := "true"
		collapseLabel := "&#x2212;"
		if view.Collapsed {
			collapseTarget = "false"
			collapseLabel = "+"
		}
		fmt.Fprintf(w, `<div class="dataclean-header" id="dataclean-drag-handle"><span class="dataclean-title">Dataframes</span>`+
			`<span class="dataclean-controls">`+
			`<button class="dataclean-refresh" data-on-click="@post('/panel/refresh')" title="Refresh">&#x21bb;</button>`+
			`<button class="dataclean-collapse" data-on-click="@post('/panel/collapse?to=%s')">%s</button>`+
			`<button class="dataclean-close" data-on-click="@post('/panel/toggle')">&times;</button>`+
			`</span></div>`, collapseTarget, collapseLabel)

		if !view.Collapsed {
			_, _ = io.WriteString(w, `<div class="dataclean-body">`)
			if len(view.Frames) == 0 {
				_, _ = io.WriteString(w, `<p class="dataclean-empty">No dataframes tracked yet. Run a cell that assigns a pandas DataFrame.</p>`)
			}
			for _, f := range view.Frames {
				if err := FrameSection(f).Render(ctx, w); err != nil {
					return err
				}
			}
			_, _ = io.WriteString(w, `</div>`)
		}

		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// FrameSection renders one dataframe with its summary table and, when
// expanded, its pipeline widget row.
func FrameSection(f FrameView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<section class="dataclean-frame" id="frame-%s">`, html.EscapeString(f.ID))

		fmt.Fprintf(w, `<h3 class="dataclean-frame-name">%s <span class="dataclean-shape">%s</span>`,
			html.EscapeString(f.Name), html.EscapeString(f.Shape))
		if f.Sampled {
			_, _ = io.WriteString(w, ` <span class="dataclean-sampled" title="Summary computed on a sample">sampled</span>`)
		}
		_, _ = io.WriteString(w, `</h3>`)

		if err := frameToggle(w, f); err != nil {
			return err
		}

		_, _ = io.WriteString(w, `<table class="dataclean-columns"><thead><tr><th></th><th>Column</th><th>Dtype</th><th>Nulls</th><th>Distinct</th></tr></thead><tbody>`)
		for _, c := range f.Columns {
			if err := ColumnRow(c).Render(ctx, w); err != nil {
				return err
			}
		}
		_, _ = io.WriteString(w, `</tbody></table></section>`)
		return nil
	})
}

func frameToggle(w io.Writer, f FrameView) error {
	id := html.EscapeString(f.ID)
	if !f.Expanded {
		_, err := fmt.Fprintf(w,
			`<button class="dataclean-pipeline-toggle" data-on-click="@post('/panel/frames/%s/expand')">Pipeline &#x25b8;</button>`, id)
		return err
	}

	fmt.Fprintf(w,
		`<button class="dataclean-pipeline-toggle" data-on-click="@post('/panel/rows/%s/collapse')">Pipeline &#x25be;</button>`, id)
	fmt.Fprintf(w,
		`<a class="dataclean-export" href="/frames/%s/export" download>Export pipeline</a>`, id)
	_, err := fmt.Fprintf(w, `<div class="dataclean-widget" id="widget-%s">%s</div>`, id, widgetBody(f.WidgetHTML))
	return err
}

// ColumnRow renders one column's summary row and, when expanded, the row
// hosting its widget.
func ColumnRow(c ColumnView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		id := html.EscapeString(c.ID)
		frameID := html.EscapeString(c.FrameID)

		caret := "&#x25b8;"
		action := fmt.Sprintf("@post('/panel/frames/%s/columns/%s/expand')", frameID, id)
		if c.Expanded {
			caret = "&#x25be;"
			action = fmt.Sprintf("@post('/panel/rows/%s/collapse')", id)
		}

		fmt.Fprintf(w, `<tr class="dataclean-column" id="col-%s">`, id)
		fmt.Fprintf(w, `<td><button class="dataclean-caret" data-on-click="%s">%s</button></td>`, action, caret)
		fmt.Fprintf(w, `<td>%s</td><td><code>%s</code></td><td>%s</td><td>%d</td></tr>`,
			html.EscapeString(c.Name), html.EscapeString(c.Dtype), html.EscapeString(c.NullPct), c.Distinct)

		if c.Expanded {
			fmt.Fprintf(w, `<tr class="dataclean-detail"><td colspan="5"><div class="dataclean-widget" id="widget-%s">%s</div></td></tr>`,
				id, widgetBody(c.WidgetHTML))
		}
		return nil
	})
}

// Widget renders one widget container with its markup, used for targeted
// SSE patches after a kernel reply.
func Widget(rowID, markup string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="dataclean-widget" id="widget-%s">%s</div>`,
			html.EscapeString(rowID), widgetBody(markup))
		return err
	})
}

// widgetBody passes kernel-rendered markup through untouched; empty means
// the reply has not arrived yet.
func widgetBody(markup string) string {
	if markup == "" {
		return `<span class="dataclean-loading">Loading&hellip;</span>`
	}
	return markup
}

func panelStyle(view PanelView) string {
	style := ""
	add := func(prop, val string) {
		if val != "" {
			style += prop + ":" + html.EscapeString(val) + ";"
		}
	}
	add("left", view.Left)
	add("top", view.Top)
	add("width", view.Width)
	add("height", view.Height)
	add("right", view.Right)
	return style
}
