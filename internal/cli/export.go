package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leads/internal/export"
)

// exportOptions holds the flags of the export command.
type exportOptions struct {
	master int64
	config int64
	typ    string
	ids    []int64
	out    string
}

func newExportCommand() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the leads of a master form or a stored export configuration",
		Example: `  # Every lead of master form 5 as CSV on stdout
  leads export --master 5

  # A stored configuration as markdown into the current directory
  leads export --config 12 --type markdown --out .

  # Two leads only
  leads export --master 5 --ids 101,102 --out leads.json --type json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				svc, _, err := newExportService(a.cfg, a.store, nil)
				if err != nil {
					return err
				}
				art, err := svc.Export(cmd.Context(), export.Request{
					ConfigID:      opts.config,
					MasterID:      opts.master,
					Type:          strings.ToLower(strings.TrimSpace(opts.typ)),
					SubmissionIDs: opts.ids,
				})
				if err != nil {
					return err
				}
				return writeArtifact(cmd, art, opts.out)
			})
		},
	}

	cmd.Flags().Int64Var(&opts.master, "master", 0, "master form id")
	cmd.Flags().Int64Var(&opts.config, "config", 0, "export configuration id")
	cmd.Flags().StringVarP(&opts.typ, "type", "t", "", "exporter type (default: the configuration's type, else csv)")
	cmd.Flags().Int64SliceVar(&opts.ids, "ids", nil, "only these lead ids")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file or directory (default: stdout)")
	cmd.MarkFlagsMutuallyExclusive("master", "config")

	return cmd
}

func (o *exportOptions) validate() error {
	if o.master <= 0 && o.config <= 0 {
		return errors.New("one of --master or --config is required")
	}
	for _, id := range o.ids {
		if id <= 0 {
			return fmt.Errorf("invalid lead id %d", id)
		}
	}
	return nil
}

// writeArtifact writes to stdout, to out, or into out when it is a directory.
func writeArtifact(cmd *cobra.Command, art *export.Artifact, out string) error {
	if out == "" || out == "-" {
		_, err := cmd.OutOrStdout().Write(art.Body)
		return err
	}

	if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, art.Filename)
	}
	if err := os.WriteFile(out, art.Body, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", art.Rows, out)
	return nil
}
