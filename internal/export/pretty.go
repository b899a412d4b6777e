package export

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JonMunkholm/leads/internal/core"
)

// PrettyFormat selects how a go-pretty table is rendered.
type PrettyFormat int

const (
	FormatText PrettyFormat = iota
	FormatMarkdown
	FormatHTML
)

// Pretty renders tables with go-pretty as text, markdown or HTML.
type Pretty struct {
	format  PrettyFormat
	enabled Availability
}

// NewPretty creates a go-pretty backed exporter.
func NewPretty(format PrettyFormat, opts Options) *Pretty {
	return &Pretty{format: format, enabled: opts.Enabled}
}

func (p *Pretty) Type() string {
	switch p.format {
	case FormatMarkdown:
		return "markdown"
	case FormatHTML:
		return "html"
	default:
		return "table"
	}
}

func (p *Pretty) Available() bool { return p.enabled.Enabled(p.Type()) }

func (p *Pretty) ContentType() string {
	switch p.format {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (p *Pretty) Extension() string {
	switch p.format {
	case FormatMarkdown:
		return "md"
	case FormatHTML:
		return "html"
	default:
		return "txt"
	}
}

func (p *Pretty) Render(w io.Writer, t *core.Table) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(toRow(t.Header))
	for _, r := range t.Rows {
		tw.AppendRow(toRow(r))
	}

	var out string
	switch p.format {
	case FormatMarkdown:
		out = tw.RenderMarkdown()
	case FormatHTML:
		out = tw.RenderHTML()
	default:
		out = tw.Render()
	}

	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return fmt.Errorf("write %s: %w", p.Type(), err)
	}
	return nil
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
