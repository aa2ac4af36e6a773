package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/templates"
)

func newTemplatesCmd(root *rootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List prompt templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter domain.DraftMode
			if mode != "" {
				parsed, err := domain.ParseDraftMode(mode)
				if err != nil {
					return err
				}
				filter = parsed
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			return invoke(cfg, func(library *templates.Library) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tMODE\tNAME\tDEFAULT\tVERSION")
				for _, tmpl := range library.List(filter) {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\n",
						tmpl.ID, tmpl.Mode.DisplayName(), tmpl.Name, tmpl.IsDefault, tmpl.Version)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "only list templates of this mode")

	return cmd
}
