package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/leads/internal/core"
)

// utf8BOM helps spreadsheet applications detect UTF-8.
const utf8BOM = "\uFEFF"

// flushInterval is how many rows are buffered before flushing the writer.
const flushInterval = 1000

// CSV renders UTF-8 CSV with a header row.
type CSV struct {
	enabled   Availability
	delimiter rune
	bom       bool
}

// NewCSV creates the csv exporter.
func NewCSV(opts Options) *CSV {
	d := opts.CSVDelimiter
	if d == 0 {
		d = ','
	}
	return &CSV{enabled: opts.Enabled, delimiter: d, bom: opts.CSVBOM}
}

func (c *CSV) Type() string        { return "csv" }
func (c *CSV) Available() bool     { return c.enabled.Enabled(c.Type()) }
func (c *CSV) ContentType() string { return "text/csv; charset=utf-8" }
func (c *CSV) Extension() string   { return "csv" }

// Render writes the header followed by one line per row.
func (c *CSV) Render(w io.Writer, t *core.Table) error {
	if c.bom {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = c.delimiter

	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
		if (i+1)%flushInterval == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
