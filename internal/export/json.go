package export

import (
	"encoding/json"
	"io"

	"github.com/JonMunkholm/leads/internal/core"
)

// JSON renders {"header": [...], "rows": [[...], ...]}.
// Rows stay positional so repeated header labels cannot collide.
type JSON struct {
	enabled Availability
}

// NewJSON creates the json exporter.
func NewJSON(opts Options) *JSON {
	return &JSON{enabled: opts.Enabled}
}

func (j *JSON) Type() string        { return "json" }
func (j *JSON) Available() bool     { return j.enabled.Enabled(j.Type()) }
func (j *JSON) ContentType() string { return "application/json" }
func (j *JSON) Extension() string   { return "json" }

type jsonTable struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

func (j *JSON) Render(w io.Writer, t *core.Table) error {
	rows := t.Rows
	if rows == nil {
		rows = [][]string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonTable{Header: t.Header, Rows: rows})
}
