package main

import (
	"errors"
	"fmt"
	"strings"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (c *cli) detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <text>",
		Short: "Find currency amounts in text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			found := app.Service.Detect(strings.Join(args, " "))
			if jsonFlag(cmd) {
				if found == nil {
					found = []domain.DetectedAmount{}
				}
				return renderJSON(cmd.OutOrStdout(), found)
			}
			if len(found) == 0 {
				info(cmd, "No amounts found")
				return nil
			}
			rows := pterm.TableData{{"Matched", "Amount", "Currency", "Format", "Confidence", "Candidates"}}
			for _, d := range found {
				rows = append(rows, []string{
					d.MatchedText,
					d.Amount.String(),
					d.CurrencyCode,
					string(d.Format),
					fmt.Sprintf("%.2f", d.Confidence),
					strings.Join(d.Candidates, ","),
				})
			}
			return renderTable(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func (c *cli) convertCmd() *cobra.Command {
	var (
		amount, from, to, webpage string
		noRecord                  bool
	)
	cmd := &cobra.Command{
		Use:   "convert [text]",
		Short: "Convert selected text or an explicit amount",
		Long: `Convert the first amount found in text, e.g. fxconv convert "costs $25",
or an explicit amount with --amount and --from.`,
		Example: `  fxconv convert "€12,50"
  fxconv convert --amount 100 --from USD --to JPY`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			var out *application.ConversionOutcome
			if amount != "" || from != "" {
				if amount == "" || from == "" || to == "" {
					return errors.New("--amount, --from and --to go together")
				}
				d, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("--amount %q: %w", amount, domain.ErrInvalidAmount)
				}
				out, err = app.Service.Convert(cmd.Context(), application.ConvertRequest{
					Amount:  d,
					From:    from,
					To:      to,
					Source:  domain.SourceManual,
					Webpage: webpage,
					Record:  !noRecord,
				})
				if err != nil && out == nil {
					return err
				}
			} else {
				if len(args) == 0 {
					return errors.New("text or --amount/--from/--to required")
				}
				out, err = app.Service.ConvertSelection(cmd.Context(), application.Selection{
					Text:           strings.Join(args, " "),
					Webpage:        webpage,
					Source:         domain.SourceManual,
					TargetCurrency: to,
				})
				if err != nil && out == nil {
					return err
				}
				if out == nil {
					info(cmd, "No amount found in %q", strings.Join(args, " "))
					return nil
				}
			}
			return printOutcome(cmd, out, app.Settings.GetSettings())
		},
	}
	f := cmd.Flags()
	f.StringVar(&amount, "amount", "", "amount to convert")
	f.StringVar(&from, "from", "", "source currency code")
	f.StringVar(&to, "to", "", "target currency code (defaults from settings for text)")
	f.StringVar(&webpage, "webpage", "", "page the amount came from")
	f.BoolVar(&noRecord, "no-record", false, "do not add explicit conversions to history")
	f.Bool("json", false, "print JSON")
	return cmd
}
