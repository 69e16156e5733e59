package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// Table prints rows under header. Markdown mode renders a markdown table.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	hdr := make(table.Row, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	t.AppendHeader(hdr)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}

	style := table.StyleLight
	style.Options.DrawBorder = false
	if !r.isTTY {
		style = table.StyleDefault
		style.Options.DrawBorder = false
	}
	t.SetStyle(style)
	t.Render()
}
