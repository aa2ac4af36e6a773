package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidbz/draftlock/internal/domain"
)

func newUsageCmd(root *rootOptions) *cobra.Command {
	var records bool

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show accumulated usage",
		Long: `Show the totals of every recorded transformation.

Examples:
  draftlock usage
  draftlock usage --records
  draftlock usage reset --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			return invoke(cfg, func(usage *domain.UsageService) error {
				if err := printTotals(cmd, usage.Totals()); err != nil {
					return err
				}
				if records {
					return printRecords(cmd, usage.Entries())
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&records, "records", false, "list every recorded transformation")
	cmd.AddCommand(newUsageResetCmd(root))

	return cmd
}

func newUsageResetCmd(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the usage ledger",
		Long:  `Remove every recorded transformation. This cannot be undone.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset usage without --yes")
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			return invoke(cfg, func(usage *domain.UsageService) error {
				return printTotals(cmd, usage.Reset(cmd.Context()))
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")

	return cmd
}

func printTotals(cmd *cobra.Command, totals domain.LedgerTotals) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "entries:\t%d\n", totals.Entries)
	fmt.Fprintf(w, "input tokens:\t%d\n", totals.InputTokens)
	fmt.Fprintf(w, "output tokens:\t%d\n", totals.OutputTokens)
	fmt.Fprintf(w, "cost:\t%s\n", domain.FormatCost(totals.Cost, totals.Currency))
	return w.Flush()
}

func printRecords(cmd *cobra.Command, records []domain.UsageRecord) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tMODEL\tMODE\tINPUT\tOUTPUT\tCOST\tPRICING")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.Date.Local().Format(time.DateTime), r.Model, r.Mode.DisplayName(),
			r.InputTokens, r.OutputTokens,
			domain.FormatCost(r.Cost(), r.Pricing.Currency), r.Pricing.PricingID)
	}
	return w.Flush()
}
