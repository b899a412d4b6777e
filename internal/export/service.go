package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/leads/internal/core"
)

// Request asks for an export, either of a stored configuration or of a
// master form's leads.
type Request struct {
	ConfigID      int64   // Stored configuration; takes precedence over MasterID
	MasterID      int64   // Master form when no configuration is used
	Type          string  // Exporter key; defaults to the configuration's type
	SubmissionIDs []int64 // Restrict to these leads; empty means all
}

// Artifact is a rendered export ready for download.
type Artifact struct {
	ID          string
	Type        string
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// Observer is notified after each export attempt.
type Observer interface {
	ExportFinished(typ string, rows int, elapsed time.Duration, err error)
}

// Service produces export artifacts.
type Service struct {
	store    core.ExportStore
	registry *Registry
	loader   *core.ConfigLoader
	pivot    *core.Denormalizer
	limiter  *Limiter
	observer Observer
	now      func() time.Time
}

// NewService wires an export service. limiter and observer may be nil.
func NewService(store core.ExportStore, registry *Registry, pivot *core.Denormalizer, limiter *Limiter, observer Observer) *Service {
	return &Service{
		store:    store,
		registry: registry,
		loader:   core.NewConfigLoader(store),
		pivot:    pivot,
		limiter:  limiter,
		observer: observer,
		now:      time.Now,
	}
}

// Exporters returns the usable exporters.
func (s *Service) Exporters() ([]Exporter, error) {
	return s.registry.Available()
}

// Masters lists the master forms that have leads.
func (s *Service) Masters(ctx context.Context) ([]core.MasterForm, error) {
	return s.store.ListMasters(ctx)
}

// Export renders the requested leads. Lookup failures (unknown
// configuration or exporter type) are returned before any lead data is read.
// The artifact is rendered completely in memory, so a failure never yields
// a truncated file.
func (s *Service) Export(ctx context.Context, req Request) (art *Artifact, err error) {
	start := s.now()
	// label stays empty until an exporter resolves, so observers only ever
	// see registered type keys.
	label := ""
	rows := 0
	defer func() {
		if s.observer != nil {
			s.observer.ExportFinished(label, rows, time.Since(start), err)
		}
	}()

	typ := req.Type
	var exp Exporter
	if typ != "" {
		if exp, err = s.registry.Resolve(typ); err != nil {
			return nil, err
		}
	}

	pr := core.PivotRequest{MasterID: req.MasterID, SubmissionIDs: req.SubmissionIDs}
	if req.ConfigID != 0 {
		cfg, err := s.loader.Load(ctx, req.ConfigID)
		if err != nil {
			return nil, err
		}
		pr.MasterID = cfg.MasterID
		pr.FieldIDs = cfg.Fields
		if typ == "" {
			typ = cfg.Type
		}
	}
	if typ == "" {
		typ = "csv"
	}
	if exp == nil {
		if exp, err = s.registry.Resolve(typ); err != nil {
			return nil, err
		}
	}
	label = exp.Type()
	if pr.MasterID <= 0 {
		return nil, errors.New("export requires a master form or export configuration")
	}

	var buf bytes.Buffer
	render := func(ctx context.Context) error {
		table, err := s.pivot.Pivot(ctx, pr)
		if err != nil {
			return err
		}
		if err := exp.Render(&buf, table); err != nil {
			return fmt.Errorf("render %s: %w", typ, err)
		}
		rows = len(table.Rows)
		return nil
	}
	if s.limiter != nil {
		err = s.limiter.Do(ctx, render)
	} else {
		err = render(ctx)
	}
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	slog.InfoContext(ctx, "export rendered",
		"export_id", id,
		"type", typ,
		"master_id", pr.MasterID,
		"config_id", req.ConfigID,
		"rows", rows,
		"bytes", buf.Len(),
	)

	return &Artifact{
		ID:          id,
		Type:        typ,
		Filename:    fmt.Sprintf("leads_%d_%s.%s", pr.MasterID, s.now().Format("20060102_150405"), exp.Extension()),
		ContentType: exp.ContentType(),
		Body:        buf.Bytes(),
		Rows:        rows,
	}, nil
}
