package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Recorder stores submissions as leads.
type Recorder struct {
	store   CaptureStore
	hooks   *Hooks
	formats DateFormats
	now     func() time.Time
}

// NewRecorder creates a Recorder. hooks may be nil.
func NewRecorder(store CaptureStore, formats DateFormats, hooks *Hooks) *Recorder {
	return &Recorder{
		store:   store,
		hooks:   hooks,
		formats: formats,
		now:     time.Now,
	}
}

// CaptureForm loads the form by id and captures a submission for it.
func (r *Recorder) CaptureForm(ctx context.Context, formID int64, in Submitted) (int64, error) {
	form, err := r.store.Form(ctx, formID)
	if err != nil {
		return 0, err
	}
	in.Form = form
	return r.Capture(ctx, in)
}

// Capture stores one submission and returns the new lead id.
//
// Forms without lead capture return a *DisabledError without touching the
// store or running hooks. Any failure, including a hook error or a
// malformed date, rolls back the whole submission.
func (r *Recorder) Capture(ctx context.Context, in Submitted) (int64, error) {
	if !in.Form.LeadEnabled {
		return 0, &DisabledError{FormID: in.Form.ID}
	}

	var leadID int64
	err := r.store.InTx(ctx, func(tx CaptureStore) error {
		id, err := r.capture(ctx, tx, &in)
		leadID = id
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("capture form %d: %w", in.Form.ID, err)
	}

	slog.DebugContext(ctx, "lead captured",
		"lead_id", leadID,
		"form_id", in.Form.ID,
		"master_id", in.Form.ResolvedMaster(),
	)
	return leadID, nil
}

func (r *Recorder) capture(ctx context.Context, tx CaptureStore, in *Submitted) (int64, error) {
	now := r.now()

	member := in.MemberID
	if member < 0 {
		member = AnonymousMember
	}

	sub := &Submission{
		Created:  now,
		Touched:  now,
		Language: in.Language,
		FormID:   in.Form.ID,
		MasterID: in.Form.ResolvedMaster(),
		MemberID: member,
	}
	leadID, err := tx.InsertSubmission(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("insert lead: %w", err)
	}

	fields, err := tx.CaptureFields(ctx, in.Form)
	if err != nil {
		return 0, fmt.Errorf("resolve fields: %w", err)
	}

	pre := r.hooks.preStore()
	for _, field := range fields {
		posted, ok := in.Post[field.PostName]
		if !ok {
			continue
		}

		rec, err := r.buildRecord(leadID, now, field, posted)
		if err != nil {
			return 0, err
		}

		for _, hook := range pre {
			if err := hook.BeforeStore(ctx, in, leadID, field, rec); err != nil {
				return 0, fmt.Errorf("pre-store hook for field %s: %w", field.Name, err)
			}
		}

		if _, err := tx.InsertRecord(ctx, rec); err != nil {
			return 0, fmt.Errorf("insert field %s: %w", field.Name, err)
		}
	}

	for _, hook := range r.hooks.postStore() {
		if err := hook.AfterStore(ctx, in, leadID, fields); err != nil {
			return 0, fmt.Errorf("post-store hook: %w", err)
		}
	}

	return leadID, nil
}

// buildRecord labels and normalizes one posted value.
func (r *Recorder) buildRecord(leadID int64, now time.Time, field FieldDefinition, posted Value) (*FieldRecord, error) {
	label := Scalar("")
	if len(field.Options) > 0 {
		label = ComputeLabel(posted, field.Options)
	}

	value, err := NormalizeValue(posted, field.Type, r.formats)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Field = field.Name
		}
		return nil, err
	}

	return &FieldRecord{
		SubmissionID:  leadID,
		Sorting:       field.Sorting,
		Touched:       now,
		MasterFieldID: field.MasterFieldID,
		FieldID:       field.ID,
		Name:          field.Name,
		Value:         value,
		Label:         label,
	}, nil
}
