package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leads/internal/store"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				if err := a.migrate(cmd.Context()); err != nil {
					return err
				}
				return printVersion(cmd, a)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				db := store.OpenDB(a.pool)
				defer db.Close()
				if err := store.MigrateDown(cmd.Context(), db); err != nil {
					return err
				}
				return printVersion(cmd, a)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schema version and whether every table exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				if err := printVersion(cmd, a); err != nil {
					return err
				}
				db := store.OpenDB(a.pool)
				defer db.Close()
				if err := store.VerifySchema(cmd.Context(), db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema complete")
				return nil
			})
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, a *app) error {
	db := store.OpenDB(a.pool)
	defer db.Close()

	v, err := store.Version(cmd.Context(), db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
	return nil
}

// withApp connects to the database for the duration of fn.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	cfg, err := configFrom(cmd.Context())
	if err != nil {
		return err
	}
	a, err := connect(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
