package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func (c *cli) historyCmd() *cobra.Command {
	var (
		f        application.HistoryFilter
		pair     string
		source   string
		clear    string
		repeatID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, repeat or clear past conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			if clear != "" {
				scope, err := application.ParseClearScope(clear)
				if err != nil {
					return err
				}
				if err := app.History.ClearHistory(cmd.Context(), scope); err != nil {
					return err
				}
				success(cmd, "Cleared %s", scope)
				return nil
			}
			if repeatID != "" {
				out, err := app.Service.RepeatConversion(cmd.Context(), repeatID)
				if err != nil && out == nil {
					return err
				}
				return printOutcome(cmd, out, app.Settings.GetSettings())
			}
			if pair != "" {
				p, err := domain.ParsePair(pair)
				if err != nil {
					return err
				}
				f.Pair = &p
			}
			if source != "" {
				src, err := domain.ParseConversionSource(source)
				if err != nil {
					return err
				}
				f.Source = src
			}
			records := app.History.GetHistory(f)
			if jsonFlag(cmd) {
				return renderJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				info(cmd, "No conversions yet")
				return nil
			}
			rows := pterm.TableData{{"ID", "When", "From", "To", "Rate", "Source"}}
			for _, r := range records {
				rows = append(rows, []string{
					r.ID,
					r.Time().Format(time.DateTime),
					r.OriginalAmount.String() + " " + r.FromCurrency,
					domain.FormatAmount(r.ToCurrency, r.ConvertedAmount, nil) + " " + r.ToCurrency,
					r.ExchangeRate.String(),
					string(r.Source),
				})
			}
			return renderTable(cmd.OutOrStdout(), rows)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&pair, "pair", "", "only FROM-TO")
	fl.StringVar(&f.FromCurrency, "from", "", "only this source currency")
	fl.StringVar(&f.ToCurrency, "to", "", "only this target currency")
	fl.StringVar(&f.DateFrom, "since", "", "first day, YYYY-MM-DD")
	fl.StringVar(&f.DateTo, "until", "", "last day, YYYY-MM-DD")
	fl.StringVar(&source, "source", "", "only conversions from this source")
	fl.IntVarP(&f.Limit, "limit", "n", 20, "max entries, 0 for all")
	fl.StringVar(&clear, "clear", "", "clear history, stats, favorites or all")
	fl.StringVar(&repeatID, "repeat", "", "re-run the conversion with this id")
	fl.Bool("json", false, "print JSON")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	var (
		top     int
		rebuild bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show conversion statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			st := app.History.GetStats()
			if rebuild {
				if st, err = app.History.RebuildStatsFromHistory(cmd.Context()); err != nil {
					return err
				}
			}
			if jsonFlag(cmd) {
				return renderJSON(cmd.OutOrStdout(), st)
			}
			rows := pterm.TableData{
				{"Metric", "Value"},
				{"Total conversions", strconv.Itoa(st.TotalConversions)},
				{"Today", strconv.Itoa(st.TodayConversions)},
				{"Most used from", lo.CoalesceOrEmpty(st.MostUsedFromCurrency, "-")},
				{"Most used to", lo.CoalesceOrEmpty(st.MostUsedToCurrency, "-")},
				{"Most used pair", lo.CoalesceOrEmpty(st.MostUsedPair, "-")},
				{"Average amount", st.AverageAmountConverted.StringFixed(2)},
			}
			if err := renderTable(cmd.OutOrStdout(), rows); err != nil {
				return err
			}
			pairs := app.History.GetPopularPairs(top)
			if len(pairs) == 0 {
				return nil
			}
			prow := pterm.TableData{{"Pair", "Count"}}
			for _, p := range pairs {
				prow = append(prow, []string{p.Pair, strconv.Itoa(p.Count)})
			}
			days := lo.Keys(st.DailyStats)
			sort.Sort(sort.Reverse(sort.StringSlice(days)))
			drow := pterm.TableData{{"Day", "Count", "Currencies"}}
			for _, d := range lo.Slice(days, 0, 7) {
				ds := st.DailyStats[d]
				drow = append(drow, []string{d, strconv.Itoa(ds.Count), fmt.Sprint(ds.Currencies)})
			}
			if err := renderTable(cmd.OutOrStdout(), prow); err != nil {
				return err
			}
			return renderTable(cmd.OutOrStdout(), drow)
		},
	}
	cmd.Flags().IntVar(&top, "top", application.DefaultPopularPair, "popular pairs to show")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "recompute statistics from history first")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history, statistics and favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			ff, err := application.ParseExportFormat(format)
			if err != nil {
				return err
			}
			data, err := app.History.ExportHistory(ff)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			success(cmd, "Exported to %s", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, csv or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a JSON or YAML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			m, err := application.ParseImportMode(mode)
			if err != nil {
				return err
			}
			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			res, err := app.History.ImportHistory(cmd.Context(), data, m)
			if err != nil {
				return err
			}
			success(cmd, "Imported %d conversions (%d skipped) and %d favorites", res.HistoryAdded, res.HistorySkipped, res.FavoritesAdded)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "append", "append or replace")
	return cmd
}
