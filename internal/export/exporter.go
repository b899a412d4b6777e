// Package export renders denormalized lead tables into downloadable files.
//
// Output formats are strategies implementing [Exporter] and are looked up by
// type key through a [Registry]. The [Service] ties the pieces together:
// resolve the exporter, load the stored configuration, pivot the lead data
// and render it.
package export

import (
	"io"
	"strings"

	"github.com/JonMunkholm/leads/internal/core"
)

// Exporter renders a lead table in one output format.
type Exporter interface {
	// Type is the unique key used to request this format, e.g. "csv".
	Type() string

	// Available reports whether the exporter can be used in this deployment.
	Available() bool

	// ContentType is the MIME type of the rendered output.
	ContentType() string

	// Extension is the file extension without a dot.
	Extension() string

	// Render writes the table to w.
	Render(w io.Writer, t *core.Table) error
}

// Availability decides which exporter types are enabled.
// An empty set enables every type.
type Availability map[string]bool

// NewAvailability builds an Availability from type keys.
func NewAvailability(types []string) Availability {
	a := make(Availability, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			a[t] = true
		}
	}
	return a
}

// Enabled reports whether typ may be used.
func (a Availability) Enabled(typ string) bool {
	if len(a) == 0 {
		return true
	}
	return a[typ]
}

// Builtin returns every exporter shipped with the module, in listing order.
func Builtin(opts Options) []Exporter {
	return []Exporter{
		NewCSV(opts),
		NewJSON(opts),
		NewPretty(FormatText, opts),
		NewPretty(FormatMarkdown, opts),
		NewPretty(FormatHTML, opts),
	}
}

// Options configures the builtin exporters.
type Options struct {
	Enabled      Availability
	CSVDelimiter rune // Defaults to ','
	CSVBOM       bool // Prefix CSV output with a UTF-8 byte order mark
}
