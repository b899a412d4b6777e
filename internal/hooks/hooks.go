// Package hooks provides stock capture hooks.
package hooks

import (
	"context"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/leads/internal/core"
)

// TrimSpace strips surrounding whitespace from text values before they are
// stored. Choice and temporal fields are left alone.
func TrimSpace() core.PreStoreHook {
	return core.PreStoreFunc(func(ctx context.Context, in *core.Submitted, submissionID int64, field core.FieldDefinition, rec *core.FieldRecord) error {
		if field.Type != core.FieldText {
			return nil
		}
		v, err := rec.Value.Map(func(s string) (string, error) {
			return strings.TrimSpace(s), nil
		})
		if err != nil {
			return err
		}
		rec.Value = v
		return nil
	})
}

// LogStored writes one log line per captured submission.
func LogStored(logger *slog.Logger) core.PostStoreHook {
	if logger == nil {
		logger = slog.Default()
	}
	return core.PostStoreFunc(func(ctx context.Context, in *core.Submitted, submissionID int64, fields []core.FieldDefinition) error {
		logger.InfoContext(ctx, "lead stored",
			"lead_id", submissionID,
			"form_id", in.Form.ID,
			"master_id", in.Form.ResolvedMaster(),
			"member_id", in.MemberID,
			"fields", len(posted(in, fields)),
			"files", len(in.Files),
		)
		return nil
	})
}

// RecordCounter receives the number of field records written per submission.
type RecordCounter interface {
	RecordsStored(n int)
}

// CountStored reports stored records to c.
func CountStored(c RecordCounter) core.PostStoreHook {
	return core.PostStoreFunc(func(ctx context.Context, in *core.Submitted, submissionID int64, fields []core.FieldDefinition) error {
		c.RecordsStored(len(posted(in, fields)))
		return nil
	})
}

// Options selects the optional stock hooks.
type Options struct {
	TrimSpace bool
}

// Register installs the stock hooks in their usual order. Posted values are
// stored unchanged unless opts.TrimSpace is set.
func Register(h *core.Hooks, logger *slog.Logger, c RecordCounter, opts Options) {
	if opts.TrimSpace {
		h.OnPreStore(TrimSpace())
	}
	h.OnPostStore(LogStored(logger))
	if c != nil {
		h.OnPostStore(CountStored(c))
	}
}

// posted returns the fields that had a value in the submission.
func posted(in *core.Submitted, fields []core.FieldDefinition) []core.FieldDefinition {
	var out []core.FieldDefinition
	for _, f := range fields {
		if _, ok := in.Post[f.PostName]; ok {
			out = append(out, f)
		}
	}
	return out
}
