package core

import (
	"fmt"
	"strings"
	"time"
)

// FieldType is the data type of a form field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldTime
	FieldDateTime
	FieldSingleChoice
	FieldMultiChoice
)

// fieldTypeTags maps persisted type tags to field types.
// The first tag listed for a type is its canonical form.
var fieldTypeTags = map[string]FieldType{
	"text":     FieldText,
	"textarea": FieldText,
	"date":     FieldDate,
	"time":     FieldTime,
	"datim":    FieldDateTime,
	"datetime": FieldDateTime,
	"select":   FieldSingleChoice,
	"radio":    FieldSingleChoice,
	"checkbox": FieldMultiChoice,
	"multi":    FieldMultiChoice,
}

// ParseFieldType converts a persisted type tag into a FieldType.
// An empty tag is plain text.
func ParseFieldType(tag string) (FieldType, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return FieldText, nil
	}
	t, ok := fieldTypeTags[tag]
	if !ok {
		return FieldText, fmt.Errorf("unknown field type %q", tag)
	}
	return t, nil
}

// String returns the canonical tag for the type.
func (t FieldType) String() string {
	switch t {
	case FieldDate:
		return "date"
	case FieldTime:
		return "time"
	case FieldDateTime:
		return "datim"
	case FieldSingleChoice:
		return "select"
	case FieldMultiChoice:
		return "checkbox"
	default:
		return "text"
	}
}

// IsTemporal reports whether values of this type are stored as timestamps.
func (t FieldType) IsTemporal() bool {
	return t == FieldDate || t == FieldTime || t == FieldDateTime
}

// Option is one value/label pair of a choice field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldDefinition describes a form field as resolved for capture or export.
type FieldDefinition struct {
	ID            int64
	FormID        int64
	Name          string // Stored name (the master field's name for sub-forms)
	PostName      string // Key in the posted values
	Label         string
	Type          FieldType
	Options       []Option
	Sorting       int
	MasterFieldID int64 // Column identity used to align sub-form values with the master
}

// Form is the capture-relevant part of a form definition.
type Form struct {
	ID          int64
	Title       string
	MenuLabel   string
	LeadEnabled bool
	MasterID    int64 // Zero when the form is its own master
}

// ResolvedMaster returns the id of the form whose record set this form feeds.
func (f Form) ResolvedMaster() int64 {
	if f.MasterID != 0 {
		return f.MasterID
	}
	return f.ID
}

// IsSubForm reports whether the form stores its values under another form.
func (f Form) IsSubForm() bool {
	return f.MasterID != 0 && f.MasterID != f.ID
}

// AnonymousMember is the member id recorded for submissions without a logged-in member.
const AnonymousMember int64 = 0

// Submission is one captured form submission (a row in leads).
type Submission struct {
	ID       int64
	Created  time.Time
	Touched  time.Time
	Language string
	FormID   int64
	MasterID int64
	MemberID int64
}

// FieldRecord is one captured field value (a row in lead_data).
type FieldRecord struct {
	ID            int64
	SubmissionID  int64
	Sorting       int
	Touched       time.Time
	MasterFieldID int64
	FieldID       int64
	Name          string
	Value         Value
	Label         Value
}

// UploadedFile describes a file posted alongside a submission.
// Files are not stored by the recorder; hooks receive them for their own use.
type UploadedFile struct {
	Name        string
	ContentType string
	Size        int64
	TempPath    string
}

// Submitted is a single incoming submission.
type Submitted struct {
	Form     Form
	Post     map[string]Value
	Files    map[string]UploadedFile
	MemberID int64 // AnonymousMember when no member is logged in
	Language string
}

// ExportConfig is a stored export configuration, read-only for the core.
type ExportConfig struct {
	ID          int64
	FormID      int64
	Name        string
	Type        string
	MasterID    int64
	Fields      []int64
	TokenFields []int64
}

// MasterForm is a form that owns a record set, as listed for navigation.
type MasterForm struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	MenuLabel string `json:"menuLabel"`
	Orphaned  bool   `json:"orphaned"` // Leads exist but the form was deleted
}

// FixedColumns is the number of leading columns every export row carries.
const FixedColumns = 3

// Table is denormalized lead data: a header and row-major cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Columns returns the number of header columns.
func (t *Table) Columns() int {
	return len(t.Header)
}
