package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/davidbz/draftlock/internal/domain"
)

func newPriceCmd(root *rootOptions) *cobra.Command {
	var (
		inputTokens  int
		outputTokens int
		list         bool
	)

	cmd := &cobra.Command{
		Use:   "price [model]",
		Short: "Show the rate applied to a model",
		Long: `Resolve a model name against the pricing catalog and price a token count.

Dated names such as gpt-4o-2024-08-06 resolve to their family when the exact
name is not listed.

Examples:
  # Show the rate for a dated model name
  draftlock price gpt-4o-2024-08-06

  # Price a specific token count
  draftlock price gpt-4o-mini --input 1200 --output 300

  # List the whole catalog
  draftlock price --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputTokens < 0 || outputTokens < 0 {
				return errors.New("token counts must not be negative")
			}
			if !list && len(args) == 0 {
				return errors.New("a model name is required unless --list is given")
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			return invoke(cfg, func(catalog *domain.PricingCatalog, calculator *domain.CostCalculator) error {
				if list {
					return printCatalog(cmd, catalog)
				}
				return printRate(cmd, calculator, args[0], inputTokens, outputTokens)
			})
		},
	}

	cmd.Flags().IntVar(&inputTokens, "input", 0, "input tokens to price")
	cmd.Flags().IntVar(&outputTokens, "output", 0, "output tokens to price")
	cmd.Flags().BoolVar(&list, "list", false, "list every model in the catalog")

	return cmd
}

func printRate(cmd *cobra.Command, calculator *domain.CostCalculator, model string, in, out int) error {
	applied, cost, err := calculator.Estimate(model, in, out)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "model:\t%s\n", model)
	fmt.Fprintf(w, "resolved:\t%s\n", applied.Rate.ID)
	fmt.Fprintf(w, "pricing:\t%s (%s %s)\n", applied.PricingID, applied.Currency, applied.Unit)
	fmt.Fprintf(w, "input:\t%s\n", applied.Rate.InputPer1M)
	if applied.Rate.CachedInputPer1M != nil {
		fmt.Fprintf(w, "cached input:\t%s\n", applied.Rate.CachedInputPer1M)
	}
	fmt.Fprintf(w, "output:\t%s\n", applied.Rate.OutputPer1M)
	fmt.Fprintf(w, "cost:\t%s (%d in, %d out)\n", domain.FormatCost(cost, applied.Currency), in, out)
	return w.Flush()
}

func printCatalog(cmd *cobra.Command, catalog *domain.PricingCatalog) error {
	snapshot, err := catalog.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s effective %s (%s %s)\n\n",
		snapshot.PricingID, snapshot.EffectiveDate, snapshot.Currency, snapshot.Unit)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tINPUT\tOUTPUT\tALIASES")
	for _, rate := range snapshot.Models {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", rate.ID, rate.InputPer1M, rate.OutputPer1M, rate.Aliases)
	}
	return w.Flush()
}
