package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/leads/internal/core"
)

const formQuery = `
SELECT id, title, lead_enabled, lead_master_id, lead_menu_label
FROM forms
WHERE id = $1`

// Form loads a form, or returns a *core.NotFoundError.
func (s *Store) Form(ctx context.Context, id int64) (core.Form, error) {
	var f core.Form
	err := s.db.QueryRow(ctx, formQuery, id).Scan(&f.ID, &f.Title, &f.LeadEnabled, &f.MasterID, &f.MenuLabel)
	if isNoRows(err) {
		return core.Form{}, core.NewNotFound("form", id)
	}
	if err != nil {
		return core.Form{}, fmt.Errorf("load form %d: %w", id, err)
	}
	return f, nil
}

// Master form: every stored field of the form.
const masterFieldsQuery = `
SELECT id, form_id, name, name, label, type, options, sorting, id
FROM form_fields
WHERE form_id = $1 AND lead_store
ORDER BY sorting, id`

// Sub-form: the sub field supplies the posted name, the aliased master
// field supplies everything that is stored.
const subFieldsQuery = `
SELECT sub.id, m.form_id, m.name, sub.name, m.label, m.type, m.options, m.sorting, m.id
FROM form_fields sub
JOIN form_field_aliases a ON a.field_id = sub.id
JOIN form_fields m ON m.id = a.master_field_id
WHERE sub.form_id = $1 AND m.lead_store
ORDER BY m.sorting, m.id`

// CaptureFields returns the fields stored for submissions of form.
func (s *Store) CaptureFields(ctx context.Context, form core.Form) ([]core.FieldDefinition, error) {
	q := masterFieldsQuery
	if form.IsSubForm() {
		q = subFieldsQuery
	}

	rows, err := s.db.Query(ctx, q, form.ID)
	if err != nil {
		return nil, fmt.Errorf("query capture fields of form %d: %w", form.ID, err)
	}
	defer rows.Close()

	var out []core.FieldDefinition
	for rows.Next() {
		var (
			d       core.FieldDefinition
			typ     string
			options []byte
		)
		if err := rows.Scan(&d.ID, &d.FormID, &d.Name, &d.PostName, &d.Label, &typ, &options, &d.Sorting, &d.MasterFieldID); err != nil {
			return nil, fmt.Errorf("scan capture field: %w", err)
		}
		if err := decodeDefinition(&d, typ, options); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const insertSubmission = `
INSERT INTO leads (tstamp, created, language, form_id, master_id, member_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

// InsertSubmission stores sub and sets its id.
func (s *Store) InsertSubmission(ctx context.Context, sub *core.Submission) (int64, error) {
	err := s.db.QueryRow(ctx, insertSubmission,
		sub.Touched, sub.Created, sub.Language, sub.FormID, sub.MasterID, sub.MemberID,
	).Scan(&sub.ID)
	if err != nil {
		return 0, fmt.Errorf("insert lead: %w", err)
	}
	return sub.ID, nil
}

const insertRecord = `
INSERT INTO lead_data (pid, sorting, tstamp, master_id, field_id, name, value, label)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

// InsertRecord stores r and sets its id.
func (s *Store) InsertRecord(ctx context.Context, r *core.FieldRecord) (int64, error) {
	value, err := json.Marshal(r.Value)
	if err != nil {
		return 0, fmt.Errorf("encode value of %s: %w", r.Name, err)
	}
	label, err := json.Marshal(r.Label)
	if err != nil {
		return 0, fmt.Errorf("encode label of %s: %w", r.Name, err)
	}

	err = s.db.QueryRow(ctx, insertRecord,
		r.SubmissionID, r.Sorting, r.Touched, r.MasterFieldID, r.FieldID, r.Name, string(value), string(label),
	).Scan(&r.ID)
	if err != nil {
		return 0, fmt.Errorf("insert lead data %s: %w", r.Name, err)
	}
	return r.ID, nil
}
