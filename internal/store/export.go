package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/JonMunkholm/leads/internal/core"
)

const exportConfigQuery = `
SELECT e.id, e.pid, e.name, e.type, COALESCE(f.lead_master_id, 0), e.fields, e.token_fields
FROM lead_exports e
LEFT JOIN forms f ON f.id = e.pid
WHERE e.id = $1`

// ExportConfigRow loads a stored export configuration.
func (s *Store) ExportConfigRow(ctx context.Context, id int64) (core.ExportConfigRow, bool, error) {
	var (
		row            core.ExportConfigRow
		fields, tokens []byte
	)
	err := s.db.QueryRow(ctx, exportConfigQuery, id).Scan(
		&row.ID, &row.FormID, &row.Name, &row.Type, &row.FormMaster, &fields, &tokens,
	)
	if isNoRows(err) {
		return core.ExportConfigRow{}, false, nil
	}
	if err != nil {
		return core.ExportConfigRow{}, false, fmt.Errorf("load export config %d: %w", id, err)
	}
	row.Fields = fields
	row.TokenFields = tokens
	return row, true, nil
}

// leadFilter is shared by the pivot queries: $1 master id, $2 lead ids.
const leadFilter = `l.master_id = $1 AND (cardinality($2::bigint[]) = 0 OR l.id = ANY($2))`

const pivotColumnsQuery = `
SELECT DISTINCT ON (d.master_id)
	d.master_id, d.name, d.sorting,
	f.id, f.form_id, f.name, f.label, f.type, f.options, f.sorting
FROM lead_data d
JOIN leads l ON l.id = d.pid
LEFT JOIN form_fields f ON f.id = d.master_id
WHERE ` + leadFilter + `
ORDER BY d.master_id, d.id`

// PivotColumns returns each distinct master field among the selected leads.
func (s *Store) PivotColumns(ctx context.Context, q core.PivotQuery) ([]core.ColumnSource, error) {
	rows, err := s.db.Query(ctx, pivotColumnsQuery, q.MasterID, idFilter(q.SubmissionIDs))
	if err != nil {
		return nil, fmt.Errorf("query pivot columns: %w", err)
	}
	defer rows.Close()

	var out []core.ColumnSource
	for rows.Next() {
		var (
			src      core.ColumnSource
			defID    *int64
			formID   *int64
			name     *string
			label    *string
			typ      *string
			options  []byte
			defOrder *int
		)
		if err := rows.Scan(&src.MasterFieldID, &src.RecordName, &src.RecordSorting,
			&defID, &formID, &name, &label, &typ, &options, &defOrder); err != nil {
			return nil, fmt.Errorf("scan pivot column: %w", err)
		}

		if defID != nil {
			d := core.FieldDefinition{
				ID:            *defID,
				FormID:        deref(formID),
				Name:          deref(name),
				PostName:      deref(name),
				Label:         deref(label),
				Sorting:       deref(defOrder),
				MasterFieldID: *defID,
			}
			if err := decodeDefinition(&d, deref(typ), options); err != nil {
				return nil, err
			}
			src.Definition = &d
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

const fieldDefinitionsQuery = `
SELECT id, form_id, name, label, type, options, sorting
FROM form_fields
WHERE id = ANY($1)`

// FieldDefinitions returns the definitions that exist for ids.
func (s *Store) FieldDefinitions(ctx context.Context, ids []int64) ([]core.FieldDefinition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, fieldDefinitionsQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("query field definitions: %w", err)
	}
	defer rows.Close()

	var out []core.FieldDefinition
	for rows.Next() {
		var (
			d       core.FieldDefinition
			typ     string
			options []byte
		)
		if err := rows.Scan(&d.ID, &d.FormID, &d.Name, &d.Label, &typ, &options, &d.Sorting); err != nil {
			return nil, fmt.Errorf("scan field definition: %w", err)
		}
		d.PostName = d.Name
		d.MasterFieldID = d.ID
		if err := decodeDefinition(&d, typ, options); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const pivotRecordsQuery = `
SELECT d.id, d.pid, d.sorting, d.tstamp, d.master_id, d.field_id, d.name, d.value, d.label,
	l.created,
	COALESCE(f.title, ''),
	COALESCE(TRIM(CONCAT_WS(' ', m.firstname, m.lastname)), '')
FROM lead_data d
JOIN leads l ON l.id = d.pid
LEFT JOIN forms f ON f.id = l.form_id
LEFT JOIN members m ON m.id = l.member_id
WHERE ` + leadFilter + `
ORDER BY l.created DESC, l.id, d.id`

// EachPivotRecord streams lead data rows in export order.
func (s *Store) EachPivotRecord(ctx context.Context, q core.PivotQuery, fn func(core.PivotRecord) error) error {
	rows, err := s.db.Query(ctx, pivotRecordsQuery, q.MasterID, idFilter(q.SubmissionIDs))
	if err != nil {
		return fmt.Errorf("query lead data: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r            core.PivotRecord
			value, label []byte
		)
		err := rows.Scan(&r.ID, &r.SubmissionID, &r.Sorting, &r.Touched, &r.MasterFieldID, &r.FieldID, &r.Name,
			&value, &label, &r.Created, &r.FormTitle, &r.MemberName)
		if err != nil {
			return fmt.Errorf("scan lead data: %w", err)
		}
		if r.Value, err = decodeValue(value); err != nil {
			return fmt.Errorf("decode value of record %d: %w", r.ID, err)
		}
		if r.Label, err = decodeValue(label); err != nil {
			return fmt.Errorf("decode label of record %d: %w", r.ID, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

const listMastersQuery = `
SELECT f.id, f.title, f.lead_menu_label, false
FROM forms f
WHERE f.lead_enabled AND f.lead_master_id = 0
UNION
SELECT DISTINCT l.master_id, '', '', true
FROM leads l
LEFT JOIN forms f ON f.id = l.master_id
WHERE f.id IS NULL`

// ListMasters returns master forms with leads enabled and the ids of
// deleted masters that still have leads, ordered by menu label.
func (s *Store) ListMasters(ctx context.Context) ([]core.MasterForm, error) {
	rows, err := s.db.Query(ctx, listMastersQuery)
	if err != nil {
		return nil, fmt.Errorf("query master forms: %w", err)
	}
	defer rows.Close()

	var out []core.MasterForm
	for rows.Next() {
		var m core.MasterForm
		if err := rows.Scan(&m.ID, &m.Title, &m.MenuLabel, &m.Orphaned); err != nil {
			return nil, fmt.Errorf("scan master form: %w", err)
		}
		m.Title, m.MenuLabel = menuLabel(m.ID, m.Title, m.MenuLabel)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortMasters(out)
	return out, nil
}

func sortMasters(ms []core.MasterForm) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].MenuLabel != ms[j].MenuLabel {
			return ms[i].MenuLabel < ms[j].MenuLabel
		}
		return ms[i].ID < ms[j].ID
	})
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
