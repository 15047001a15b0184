package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/datacleanhq/dataclean/internal/history"
	"github.com/datacleanhq/dataclean/internal/introspect"
)

// renderFrames writes the frame summaries in the requested format.
func renderFrames(w io.Writer, frames []introspect.FrameDescriptor, format string) error {
	switch format {
	case "json":
		return renderJSON(w, frames)
	case "csv":
		header := []string{"id", "name", "shape", "columns", "sampled"}
		rows := make([][]string, 0, len(frames))
		for _, f := range frames {
			rows = append(rows, []string{f.ID, f.Name, f.Shape, fmt.Sprint(len(f.Columns)), fmt.Sprint(f.Sampled)})
		}
		return renderCSV(w, header, rows)
	default:
		t := newTable(w, format)
		t.AppendHeader(table.Row{"ID", "NAME", "SHAPE", "COLUMNS", "SAMPLED"})
		for _, f := range frames {
			t.AppendRow(table.Row{f.ID, f.Name, f.Shape, len(f.Columns), f.Sampled})
		}
		renderTable(t, format)
		fmt.Fprintf(w, "(%d frames)\n", len(frames))
		return nil
	}
}

// renderColumns writes per-column details for every frame.
func renderColumns(w io.Writer, frames []introspect.FrameDescriptor, format string) error {
	switch format {
	case "json":
		return renderJSON(w, frames)
	case "csv":
		header := []string{"frame", "id", "column", "dtype", "nulls", "distinct"}
		var rows [][]string
		for _, f := range frames {
			for _, c := range f.Columns {
				rows = append(rows, []string{f.Name, c.ID, c.Name, c.Dtype, c.NullPct, fmt.Sprint(c.Distinct)})
			}
		}
		return renderCSV(w, header, rows)
	default:
		t := newTable(w, format)
		t.AppendHeader(table.Row{"FRAME", "ID", "COLUMN", "DTYPE", "NULLS", "DISTINCT"})
		count := 0
		for _, f := range frames {
			for _, c := range f.Columns {
				t.AppendRow(table.Row{f.Name, c.ID, c.Name, c.Dtype, c.NullPct, c.Distinct})
				count++
			}
		}
		renderTable(t, format)
		fmt.Fprintf(w, "(%d columns)\n", count)
		return nil
	}
}

// renderHistory writes recorded kernel commands in the requested format.
func renderHistory(w io.Writer, entries []history.Entry, format string) error {
	switch format {
	case "json":
		return renderJSON(w, entries)
	case "csv":
		header := []string{"id", "kind", "status", "elapsed_ms", "recorded_at", "code"}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.ID, e.Kind, e.Status, fmt.Sprint(e.ElapsedMS),
				e.RecordedAt.Format("2006-01-02 15:04:05"), e.Code,
			})
		}
		return renderCSV(w, header, rows)
	default:
		t := newTable(w, format)
		t.AppendHeader(table.Row{"KIND", "STATUS", "ELAPSED", "RECORDED", "CODE"})
		for _, e := range entries {
			t.AppendRow(table.Row{
				e.Kind, e.Status, fmt.Sprintf("%dms", e.ElapsedMS),
				e.RecordedAt.Format("2006-01-02 15:04:05"), truncateCode(e.Code, 60),
			})
		}
		renderTable(t, format)
		fmt.Fprintf(w, "(%d commands)\n", len(entries))
		return nil
	}
}

func newTable(w io.Writer, format string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if format != "md" {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func renderTable(t table.Writer, format string) {
	if format == "md" {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

func renderJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func renderCSV(w io.Writer, header []string, rows [][]string) error {
	fmt.Fprintln(w, strings.Join(header, ","))
	for _, row := range rows {
		escaped := make([]string, len(row))
		for i, v := range row {
			escaped[i] = escapeCSV(v)
		}
		fmt.Fprintln(w, strings.Join(escaped, ","))
	}
	return nil
}

// escapeCSV quotes a value when it contains CSV metacharacters.
func escapeCSV(v string) string {
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}

// truncateCode flattens code to a single line bounded at max runes.
func truncateCode(code string, max int) string {
	code = strings.ReplaceAll(code, "\n", " ")
	runes := []rune(code)
	if len(runes) <= max {
		return code
	}
	return string(runes[:max-1]) + "…"
}
