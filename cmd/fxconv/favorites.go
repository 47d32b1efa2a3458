package main

import (
	"fmt"
	"strconv"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (c *cli) favoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage favorite conversions",
	}
	cmd.AddCommand(c.favoritesListCmd(), c.favoritesAddCmd(), c.favoritesRmCmd(), c.favoritesUseCmd())
	return cmd
}

func (c *cli) favoritesListCmd() *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			by, err := application.ParseFavoriteSort(sortBy)
			if err != nil {
				return err
			}
			favs := app.History.GetFavorites(by)
			if jsonFlag(cmd) {
				return renderJSON(cmd.OutOrStdout(), favs)
			}
			if len(favs) == 0 {
				info(cmd, "No favorites yet")
				return nil
			}
			rows := pterm.TableData{{"ID", "Label", "Pair", "Amount", "Used", "Last used"}}
			for _, f := range favs {
				amount, last := "-", "-"
				if f.Amount != nil {
					amount = f.Amount.String()
				}
				if f.LastUsed != nil {
					last = time.UnixMilli(*f.LastUsed).UTC().Format(time.DateTime)
				}
				rows = append(rows, []string{f.ID, f.Label, f.Pair().Key(), amount, strconv.Itoa(f.UsageCount), last})
			}
			return renderTable(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "created", "created, usage, recent or label")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func (c *cli) favoritesAddCmd() *cobra.Command {
	var amount, label string
	cmd := &cobra.Command{
		Use:   "add <FROM> <TO>",
		Short: "Save a favorite pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			var amt *decimal.Decimal
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("--amount %q: %w", amount, domain.ErrInvalidAmount)
				}
				amt = &d
			}
			fav, err := app.History.AddToFavorites(cmd.Context(), args[0], args[1], amt, label)
			if err != nil {
				return err
			}
			success(cmd, "Saved %q (%s)", fav.Label, fav.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "fixed amount")
	cmd.Flags().StringVar(&label, "label", "", "display label")
	return cmd
}

func (c *cli) favoritesRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a favorite",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.History.RemoveFromFavorites(cmd.Context(), args[0]); err != nil {
				return err
			}
			success(cmd, "Removed %s", args[0])
			return nil
		},
	}
}

func (c *cli) favoritesUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <id>",
		Short: "Convert with a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			out, err := app.Service.ConvertFavorite(cmd.Context(), args[0])
			if err != nil && out == nil {
				return err
			}
			return printOutcome(cmd, out, app.Settings.GetSettings())
		},
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}
