package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/export"
)

func newExportersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exporters",
		Short: "List the enabled export types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			list, err := newRegistry(cfg.Export).Available()
			if err != nil {
				return err
			}
			renderExporters(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newMastersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "masters",
		Short: "List master forms that have leads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				masters, err := a.store.ListMasters(cmd.Context())
				if err != nil {
					return err
				}
				renderMasters(cmd.OutOrStdout(), masters)
				return nil
			})
		},
	}
}

func renderExporters(w io.Writer, list []export.Exporter) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Content-Type", "Extension"})
	for _, e := range list {
		t.AppendRow(table.Row{e.Type(), e.ContentType(), e.Extension()})
	}
	t.Render()
}

func renderMasters(w io.Writer, masters []core.MasterForm) {
	if len(masters) == 0 {
		fmt.Fprintln(w, "no leads stored")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Menu label", "Title", "Orphaned"})
	for _, m := range masters {
		orphaned := ""
		if m.Orphaned {
			orphaned = "yes"
		}
		t.AppendRow(table.Row{m.ID, m.MenuLabel, m.Title, orphaned})
	}
	t.Render()
}
