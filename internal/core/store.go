package core

import (
	"context"
	"encoding/json"
	"time"
)

// CaptureStore is the persistence needed to record submissions.
type CaptureStore interface {
	// InTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx CaptureStore) error) error

	// Form returns the form with the given id, or a *NotFoundError.
	Form(ctx context.Context, id int64) (Form, error)

	// CaptureFields returns the fields a submission of form stores, ordered
	// by sorting. For sub-forms, Name, Type, Options, Label and Sorting come
	// from the aliased master field, PostName and ID from the sub-form field.
	CaptureFields(ctx context.Context, form Form) ([]FieldDefinition, error)

	InsertSubmission(ctx context.Context, s *Submission) (int64, error)
	InsertRecord(ctx context.Context, r *FieldRecord) (int64, error)
}

// ExportConfigRow is a raw export configuration joined with its form.
type ExportConfigRow struct {
	ID          int64
	FormID      int64
	Name        string
	Type        string
	FormMaster  int64           // The owning form's master id, zero if none or form missing
	Fields      json.RawMessage // JSON array of field ids
	TokenFields json.RawMessage // JSON array of field ids
}

// ColumnSource describes one distinct master field seen in lead_data.
type ColumnSource struct {
	MasterFieldID int64
	RecordName    string // Name stored on the lead_data rows
	RecordSorting int
	Definition    *FieldDefinition // nil when the master field no longer exists
}

// PivotRecord is a lead_data row joined with its lead, form and member.
type PivotRecord struct {
	FieldRecord
	Created    time.Time
	FormTitle  string
	MemberName string
}

// PivotQuery selects the leads of one master, optionally restricted to ids.
type PivotQuery struct {
	MasterID      int64
	SubmissionIDs []int64 // Empty means every lead of the master
}

// ExportStore is the read-only persistence used by exports.
type ExportStore interface {
	// ExportConfigRow returns the configuration row; ok is false when no row matches.
	ExportConfigRow(ctx context.Context, id int64) (row ExportConfigRow, ok bool, err error)

	// PivotColumns returns every distinct master field among the selected leads.
	PivotColumns(ctx context.Context, q PivotQuery) ([]ColumnSource, error)

	// FieldDefinitions returns the definitions that exist for ids, in any order.
	FieldDefinitions(ctx context.Context, ids []int64) ([]FieldDefinition, error)

	// EachPivotRecord streams the selected lead_data rows ordered by lead
	// created DESC, lead id, record id. Returning an error from fn stops the scan.
	EachPivotRecord(ctx context.Context, q PivotQuery, fn func(PivotRecord) error) error

	// ListMasters returns master forms with leads enabled plus master ids
	// that still have leads but no form.
	ListMasters(ctx context.Context) ([]MasterForm, error)
}
