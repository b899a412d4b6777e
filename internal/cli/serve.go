package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/hooks"
	"github.com/JonMunkholm/leads/internal/metrics"
	"github.com/JonMunkholm/leads/internal/web"
)

func newServeCommand() *cobra.Command {
	var (
		migrate bool
		addr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the capture and export HTTP server",
		Long: `Run the HTTP server.

Submissions are accepted on POST /api/forms/{formID}/leads. Exports and
listings live under /api and may require an API key. SIGINT or SIGTERM
shut the server down after running exports finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, addr, migrate)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: SERVER_HOST:SERVER_PORT)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving (same as DB_AUTO_MIGRATE)")
	return cmd
}

func runServe(cmd *cobra.Command, addr string, migrate bool) error {
	cfg, err := configFrom(cmd.Context())
	if err != nil {
		return err
	}

	if addr == "" {
		addr = cfg.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("configuration loaded",
		"addr", addr,
		"db_max_conns", cfg.Database.MaxConns,
		"export_max_concurrent", cfg.Export.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	a, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate || cfg.Database.AutoMigrate {
		if err := a.migrate(ctx); err != nil {
			return err
		}
		slog.Info("migrations applied")
	}

	collector := metrics.NewCollector(cfg.Metrics.Namespace, nil)

	formats, err := dateFormats(cfg.Capture)
	if err != nil {
		return err
	}
	h := &core.Hooks{}
	hooks.Register(h, slog.Default(), collector, hooks.Options{TrimSpace: cfg.Capture.TrimSpace})
	recorder := core.NewRecorder(a.store, formats, h)

	exports, limiter, err := newExportService(cfg, a.store, collector)
	if err != nil {
		return err
	}
	collector.WatchLimiter(cfg.Metrics.Namespace, limiter)

	types, err := exporterTypes(exports.Exporters())
	if err != nil {
		return err
	}
	slog.Info("exporters registered", "types", types)

	server := web.NewServer(cfg, web.Deps{
		Recorder: recorder,
		Exports:  exports,
		Ready:    a.store,
		Metrics:  collector.Handler(),
		Captures: collector,
	})

	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for exports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("exports did not complete in time", "error", err)
			} else {
				slog.Info("all exports completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
