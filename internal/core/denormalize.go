package core

// denormalize.go pivots lead_data rows into one row per lead.
//
// Columns are keyed by master field id so values captured through sub-forms
// line up with the master's own fields. Leads lacking a column get an empty
// cell. A lead with two records for the same column is resolved by the
// configured DuplicatePolicy.

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DuplicatePolicy decides which record fills a cell when a lead has several
// records for the same master field.
type DuplicatePolicy string

const (
	KeepLast         DuplicatePolicy = "keep-last"
	KeepFirst        DuplicatePolicy = "keep-first"
	RejectDuplicates DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy validates a policy name. Empty means KeepLast.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return KeepLast, nil
	case KeepLast, KeepFirst, RejectDuplicates:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// FixedHeaders are the labels of the three leading export columns.
type FixedHeaders struct {
	Created string
	Form    string
	Member  string
}

// DefaultFixedHeaders returns English labels.
func DefaultFixedHeaders() FixedHeaders {
	return FixedHeaders{Created: "Created", Form: "Form", Member: "Member"}
}

// DenormalizerOptions configures a Denormalizer.
type DenormalizerOptions struct {
	Headers       FixedHeaders
	CreatedFormat string // Layout for the created column
	Formats       DateFormats
	Duplicates    DuplicatePolicy
}

// PivotRequest selects what to pivot.
type PivotRequest struct {
	MasterID      int64
	FieldIDs      []int64 // Explicit columns in order; empty derives them from the data
	SubmissionIDs []int64 // Empty means every lead of the master
}

// Column is one resolved field column of an export.
type Column struct {
	FieldID int64
	Label   string
	Type    FieldType
}

// Denormalizer turns EAV lead data into tables.
type Denormalizer struct {
	store ExportStore
	opts  DenormalizerOptions
}

// NewDenormalizer creates a Denormalizer, filling unset options with defaults.
func NewDenormalizer(store ExportStore, opts DenormalizerOptions) *Denormalizer {
	def := DefaultFixedHeaders()
	if opts.Headers.Created == "" {
		opts.Headers.Created = def.Created
	}
	if opts.Headers.Form == "" {
		opts.Headers.Form = def.Form
	}
	if opts.Headers.Member == "" {
		opts.Headers.Member = def.Member
	}
	if opts.CreatedFormat == "" {
		opts.CreatedFormat = DefaultDateTimeFormat
	}
	if opts.Duplicates == "" {
		opts.Duplicates = KeepLast
	}
	return &Denormalizer{store: store, opts: opts}
}

// Pivot builds the complete table for req.
// No matching leads is not an error: the result has a header and no rows.
func (d *Denormalizer) Pivot(ctx context.Context, req PivotRequest) (*Table, error) {
	t := &Table{}
	err := d.Stream(ctx, req,
		func(header []string) error {
			t.Header = header
			return nil
		},
		func(row []string) error {
			t.Rows = append(t.Rows, row)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	if t.Rows == nil {
		t.Rows = [][]string{}
	}
	return t, nil
}

// Stream emits the header once and then each row as soon as its lead is
// complete, so callers can write large exports without holding them in memory.
func (d *Denormalizer) Stream(ctx context.Context, req PivotRequest, header func([]string) error, row func([]string) error) error {
	q := PivotQuery{MasterID: req.MasterID, SubmissionIDs: req.SubmissionIDs}

	cols, err := d.Columns(ctx, req)
	if err != nil {
		return err
	}

	h := make([]string, 0, FixedColumns+len(cols))
	h = append(h, d.opts.Headers.Created, d.opts.Headers.Form, d.opts.Headers.Member)
	for _, c := range cols {
		h = append(h, c.Label)
	}
	if err := header(h); err != nil {
		return err
	}

	var current *pivotLead
	flush := func() error {
		if current == nil {
			return nil
		}
		return row(d.render(current, cols))
	}

	err = d.store.EachPivotRecord(ctx, q, func(rec PivotRecord) error {
		if current == nil || current.id != rec.SubmissionID {
			if err := flush(); err != nil {
				return err
			}
			current = &pivotLead{id: rec.SubmissionID, first: rec, cells: make(map[int64]FieldRecord)}
		}
		return current.add(rec.FieldRecord, d.opts.Duplicates)
	})
	if err != nil {
		return fmt.Errorf("pivot master %d: %w", req.MasterID, err)
	}
	if err := flush(); err != nil {
		return err
	}
	return nil
}

// Columns resolves the field columns for req, without the fixed columns.
func (d *Denormalizer) Columns(ctx context.Context, req PivotRequest) ([]Column, error) {
	sources, err := d.store.PivotColumns(ctx, PivotQuery{MasterID: req.MasterID, SubmissionIDs: req.SubmissionIDs})
	if err != nil {
		return nil, fmt.Errorf("resolve columns for master %d: %w", req.MasterID, err)
	}

	if len(req.FieldIDs) > 0 {
		return d.configuredColumns(ctx, req.FieldIDs, sources)
	}

	sort.SliceStable(sources, func(i, j int) bool {
		si, sj := sources[i].sorting(), sources[j].sorting()
		if si != sj {
			return si < sj
		}
		return sources[i].MasterFieldID < sources[j].MasterFieldID
	})

	cols := make([]Column, len(sources))
	for i, src := range sources {
		cols[i] = Column{FieldID: src.MasterFieldID, Label: src.RecordName}
		if src.Definition != nil {
			cols[i].Type = src.Definition.Type
			if src.Definition.Label != "" {
				cols[i].Label = src.Definition.Label
			}
		}
	}
	return cols, nil
}

func (d *Denormalizer) configuredColumns(ctx context.Context, ids []int64, sources []ColumnSource) ([]Column, error) {
	defs, err := d.store.FieldDefinitions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load field definitions: %w", err)
	}
	byID := make(map[int64]FieldDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}
	names := make(map[int64]string, len(sources))
	for _, src := range sources {
		names[src.MasterFieldID] = src.RecordName
	}

	cols := make([]Column, len(ids))
	for i, id := range ids {
		col := Column{FieldID: id}
		if def, ok := byID[id]; ok {
			col.Type = def.Type
			col.Label = def.Label
			if col.Label == "" {
				col.Label = def.Name
			}
		}
		if col.Label == "" {
			col.Label = names[id]
		}
		if col.Label == "" {
			col.Label = "#" + strconv.FormatInt(id, 10)
		}
		cols[i] = col
	}
	return cols, nil
}

func (d *Denormalizer) render(l *pivotLead, cols []Column) []string {
	out := make([]string, 0, FixedColumns+len(cols))
	out = append(out,
		formatCreated(l.first.Created, d.opts.CreatedFormat, d.opts.Formats.location()),
		l.first.FormTitle,
		l.first.MemberName,
	)
	for _, c := range cols {
		rec, ok := l.cells[c.FieldID]
		if !ok {
			out = append(out, "")
			continue
		}
		rec.Value = d.opts.Formats.Display(c.Type, rec.Value)
		out = append(out, FormatForDisplay(rec))
	}
	return out
}

func formatCreated(t time.Time, layout string, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(layout)
}

// pivotLead collects the records of one lead while streaming.
type pivotLead struct {
	id    int64
	first PivotRecord
	cells map[int64]FieldRecord
}

func (l *pivotLead) add(rec FieldRecord, policy DuplicatePolicy) error {
	if _, dup := l.cells[rec.MasterFieldID]; dup {
		switch policy {
		case KeepFirst:
			return nil
		case RejectDuplicates:
			return &IntegrityError{Reason: fmt.Sprintf("lead %d has more than one value for field %d", l.id, rec.MasterFieldID)}
		}
	}
	l.cells[rec.MasterFieldID] = rec
	return nil
}

func (s ColumnSource) sorting() int {
	if s.Definition != nil {
		return s.Definition.Sorting
	}
	return s.RecordSorting
}
