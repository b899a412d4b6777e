package core

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// memStore is an in-memory Store used by the package tests.
type memStore struct {
	forms       map[int64]Form
	fields      map[int64][]FieldDefinition // capture fields by form id
	defs        map[int64]FieldDefinition   // master field definitions by id
	exports     map[int64]ExportConfigRow
	members     map[int64]string
	submissions []Submission
	records     []FieldRecord

	txCalls   int
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{
		forms:   make(map[int64]Form),
		fields:  make(map[int64][]FieldDefinition),
		defs:    make(map[int64]FieldDefinition),
		exports: make(map[int64]ExportConfigRow),
		members: make(map[int64]string),
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(tx CaptureStore) error) error {
	m.txCalls++
	subs := len(m.submissions)
	recs := len(m.records)
	if err := fn(m); err != nil {
		// roll back
		m.submissions = m.submissions[:subs]
		m.records = m.records[:recs]
		return err
	}
	return nil
}

func (m *memStore) Form(ctx context.Context, id int64) (Form, error) {
	f, ok := m.forms[id]
	if !ok {
		return Form{}, NewNotFound("form", id)
	}
	return f, nil
}

func (m *memStore) CaptureFields(ctx context.Context, form Form) ([]FieldDefinition, error) {
	return m.fields[form.ID], nil
}

func (m *memStore) InsertSubmission(ctx context.Context, s *Submission) (int64, error) {
	s.ID = int64(len(m.submissions) + 1)
	m.submissions = append(m.submissions, *s)
	return s.ID, nil
}

func (m *memStore) InsertRecord(ctx context.Context, r *FieldRecord) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	r.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *r)
	return r.ID, nil
}

func (m *memStore) ExportConfigRow(ctx context.Context, id int64) (ExportConfigRow, bool, error) {
	row, ok := m.exports[id]
	return row, ok, nil
}

func (m *memStore) selected(q PivotQuery) map[int64]Submission {
	want := make(map[int64]bool, len(q.SubmissionIDs))
	for _, id := range q.SubmissionIDs {
		want[id] = true
	}
	out := make(map[int64]Submission)
	for _, s := range m.submissions {
		if s.MasterID != q.MasterID {
			continue
		}
		if len(want) > 0 && !want[s.ID] {
			continue
		}
		out[s.ID] = s
	}
	return out
}

func (m *memStore) PivotColumns(ctx context.Context, q PivotQuery) ([]ColumnSource, error) {
	subs := m.selected(q)
	seen := make(map[int64]bool)
	var out []ColumnSource
	for _, r := range m.records {
		if _, ok := subs[r.SubmissionID]; !ok || seen[r.MasterFieldID] {
			continue
		}
		seen[r.MasterFieldID] = true
		src := ColumnSource{MasterFieldID: r.MasterFieldID, RecordName: r.Name, RecordSorting: r.Sorting}
		if def, ok := m.defs[r.MasterFieldID]; ok {
			d := def
			src.Definition = &d
		}
		out = append(out, src)
	}
	return out, nil
}

func (m *memStore) FieldDefinitions(ctx context.Context, ids []int64) ([]FieldDefinition, error) {
	var out []FieldDefinition
	for _, id := range ids {
		if def, ok := m.defs[id]; ok {
			out = append(out, def)
		}
	}
	return out, nil
}

func (m *memStore) EachPivotRecord(ctx context.Context, q PivotQuery, fn func(PivotRecord) error) error {
	subs := m.selected(q)
	var rows []PivotRecord
	for _, r := range m.records {
		s, ok := subs[r.SubmissionID]
		if !ok {
			continue
		}
		rows = append(rows, PivotRecord{
			FieldRecord: r,
			Created:     s.Created,
			FormTitle:   m.forms[s.FormID].Title,
			MemberName:  m.members[s.MemberID],
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Created.Equal(rows[j].Created) {
			return rows[i].Created.After(rows[j].Created)
		}
		if rows[i].SubmissionID != rows[j].SubmissionID {
			return rows[i].SubmissionID < rows[j].SubmissionID
		}
		return rows[i].ID < rows[j].ID
	})
	for _, r := range rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) ListMasters(ctx context.Context) ([]MasterForm, error) {
	var out []MasterForm
	for _, f := range m.forms {
		if f.LeadEnabled && f.MasterID == 0 {
			out = append(out, MasterForm{ID: f.ID, Title: f.Title, MenuLabel: f.Title})
		}
	}
	return out, nil
}

// addLead inserts a lead with records directly, bypassing the recorder.
func (m *memStore) addLead(formID int64, created time.Time, member int64, recs ...FieldRecord) int64 {
	form := m.forms[formID]
	id, _ := m.InsertSubmission(context.Background(), &Submission{
		Created:  created,
		Touched:  created,
		FormID:   formID,
		MasterID: form.ResolvedMaster(),
		MemberID: member,
	})
	for _, r := range recs {
		r.SubmissionID = id
		_, _ = m.InsertRecord(context.Background(), &r)
	}
	return id
}

func rawIDs(ids ...any) json.RawMessage {
	b, err := json.Marshal(ids)
	if err != nil {
		panic(err)
	}
	return b
}

var errHook = errors.New("hook failed")
