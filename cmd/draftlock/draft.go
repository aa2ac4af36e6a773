package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/davidbz/draftlock/internal/domain"
)

// draftFlags are shared by the estimate and transform commands.
type draftFlags struct {
	model    string
	mode     string
	template string
	text     string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "gpt-4o-mini", "model name")
	cmd.Flags().StringVar(&f.mode, "mode", string(domain.ModeChat), "draft mode (chat, doc, pr, notion, mail)")
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "template ID (default template of the mode if empty)")
	cmd.Flags().StringVar(&f.text, "text", "", "draft text (read from arguments or stdin if empty)")
}

// input builds the draft from flags, arguments or stdin, in that order.
func (f *draftFlags) input(cmd *cobra.Command, args []string) (domain.DraftInput, error) {
	mode, err := domain.ParseDraftMode(f.mode)
	if err != nil {
		return domain.DraftInput{}, err
	}

	input := domain.DraftInput{Model: f.model, Mode: mode}

	if f.template != "" {
		id, err := uuid.Parse(f.template)
		if err != nil {
			return domain.DraftInput{}, fmt.Errorf("invalid template ID: %w", err)
		}
		input.TemplateID = &id
	}

	switch {
	case f.text != "":
		input.Text = f.text
	case len(args) > 0:
		input.Text = strings.Join(args, " ")
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return domain.DraftInput{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		input.Text = string(data)
	}

	if strings.TrimSpace(input.Text) == "" {
		return domain.DraftInput{}, domain.ErrEmptyInput
	}

	return input, nil
}

func newEstimateCmd(root *rootOptions) *cobra.Command {
	flags := &draftFlags{}

	cmd := &cobra.Command{
		Use:   "estimate [text...]",
		Short: "Estimate the input cost of a draft",
		Long: `Count the input tokens a transformation would send and price them.

Output tokens are unknown before a run, so the estimate covers input only.

Examples:
  draftlock estimate --model gpt-4o --mode pr "fix flaky retry test"
  cat notes.md | draftlock estimate --mode doc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := flags.input(cmd, args)
			if err != nil {
				return err
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			return invoke(cfg, func(scheduler *domain.EstimationScheduler) error {
				result := scheduler.EstimateNow(cmd.Context(), input)
				if !result.Available {
					return fmt.Errorf("estimate unavailable: %s", result.Reason)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "input tokens: %d\nestimate:     %s\n",
					result.InputTokens, domain.FormatCost(result.Cost, result.Currency))
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newTransformCmd(root *rootOptions) *cobra.Command {
	flags := &draftFlags{}

	cmd := &cobra.Command{
		Use:   "transform [text...]",
		Short: "Rewrite a draft and record its usage",
		Long: `Rewrite a draft with the selected template and record the actual token
usage and cost in the ledger. The rewritten text goes to stdout and the cost
summary to stderr.

Examples:
  draftlock transform --mode mail "ask finance for the Q3 numbers"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := flags.input(cmd, args)
			if err != nil {
				return err
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			return invoke(cfg, func(transforms *domain.TransformService) error {
				outcome, err := transforms.Run(cmd.Context(), input)
				if err != nil {
					if errors.Is(err, domain.ErrMissingCredential) {
						return fmt.Errorf("%w: set OPENAI_API_KEY or OPENAI_API_KEY_FILE", err)
					}
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), outcome.Output)
				fmt.Fprintf(cmd.ErrOrStderr(), "tokens: %d in, %d out; cost: %s; total: %s\n",
					outcome.Record.InputTokens, outcome.Record.OutputTokens,
					domain.FormatCost(outcome.Cost, outcome.Record.Pricing.Currency),
					domain.FormatCost(outcome.Totals.Cost, outcome.Totals.Currency))
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}
