package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/leads/internal/config"
	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/export"
	"github.com/JonMunkholm/leads/internal/store"
)

// app holds the database-backed services every command needs.
type app struct {
	cfg   *config.Config
	pool  *pgxpool.Pool
	store *store.Store
}

// connect opens and verifies the connection pool.
func connect(ctx context.Context, cfg *config.Config) (*app, error) {
	poolConfig, err := poolConfig(cfg.Database)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return &app{cfg: cfg, pool: pool, store: store.New(pool)}, nil
}

// poolConfig applies the pool settings to the parsed database URL.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	pc.MaxConns = int32(cfg.MaxConns)
	pc.MinConns = int32(cfg.MinConns)
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	return pc, nil
}

func (a *app) Close() {
	a.pool.Close()
}

// migrate applies pending migrations and checks the resulting schema.
func (a *app) migrate(ctx context.Context) error {
	db := store.OpenDB(a.pool)
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		return err
	}
	return store.VerifySchema(ctx, db)
}

// dateFormats builds the capture layouts from config.
func dateFormats(cfg config.CaptureConfig) (core.DateFormats, error) {
	loc, err := cfg.Location()
	if err != nil {
		return core.DateFormats{}, fmt.Errorf("capture timezone: %w", err)
	}
	return core.DateFormats{
		Date:     cfg.DateFormat,
		Time:     cfg.TimeFormat,
		DateTime: cfg.DateTimeFormat,
		Location: loc,
	}, nil
}

// newExportService wires the exporter registry, the denormalizer and the
// export limiter. observer may be nil.
func newExportService(cfg *config.Config, st core.ExportStore, observer export.Observer) (*export.Service, *export.Limiter, error) {
	formats, err := dateFormats(cfg.Capture)
	if err != nil {
		return nil, nil, err
	}
	policy, err := core.ParseDuplicatePolicy(cfg.Export.DuplicatePolicy)
	if err != nil {
		return nil, nil, err
	}

	pivot := core.NewDenormalizer(st, core.DenormalizerOptions{
		Headers: core.FixedHeaders{
			Created: cfg.Export.HeaderCreated,
			Form:    cfg.Export.HeaderForm,
			Member:  cfg.Export.HeaderMember,
		},
		CreatedFormat: cfg.Export.DateTimeFormat,
		Formats:       formats,
		Duplicates:    policy,
	})

	limiter := export.NewLimiter(cfg.Export.MaxConcurrent, cfg.Export.MaxWait)

	return export.NewService(st, newRegistry(cfg.Export), pivot, limiter, observer), limiter, nil
}

// newRegistry registers the builtin exporters enabled in cfg.
func newRegistry(cfg config.ExportConfig) *export.Registry {
	return export.NewRegistry(export.Builtin(export.Options{
		Enabled:      export.NewAvailability(cfg.EnabledTypes),
		CSVDelimiter: cfg.Delimiter(),
		CSVBOM:       cfg.CSVBOM,
	})...)
}

func exporterTypes(list []export.Exporter, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	names := make([]string, len(list))
	for i, e := range list {
		names[i] = e.Type()
	}
	return names, nil
}
