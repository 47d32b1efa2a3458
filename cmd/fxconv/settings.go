package main

import (
	"bufio"
	"fmt"
	"strings"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			return printSettings(cmd, app.Settings.GetSettings())
		},
	}
	show.Flags().Bool("json", false, "print JSON")

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long:  "Change one setting. Keys: " + strings.Join(application.SettingKeys, ", ") + ".",
		Example: `  fxconv settings set baseCurrency EUR
  fxconv settings set additionalCurrencies GBP,JPY
  fxconv settings set decimalPlaces auto`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			st, err := app.Settings.UpdateSetting(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printSettings(cmd, st)
		},
	}
	set.Flags().Bool("json", false, "print JSON")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := app.Settings.ResetToDefaults(cmd.Context()); err != nil {
				return err
			}
			success(cmd, "Settings reset to defaults")
			return nil
		},
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}

func printSettings(cmd *cobra.Command, st domain.UserSettings) error {
	if jsonFlag(cmd) {
		return renderJSON(cmd.OutOrStdout(), st)
	}
	places := "auto"
	if st.DecimalPlaces != nil {
		places = fmt.Sprint(*st.DecimalPlaces)
	}
	rows := pterm.TableData{
		{"Setting", "Value"},
		{application.SettingBaseCurrency, st.BaseCurrency},
		{application.SettingSecondaryCurrency, st.SecondaryCurrency},
		{application.SettingAdditionalCurrencies, strings.Join(st.AdditionalCurrencies, ",")},
		{application.SettingShowConfidence, fmt.Sprint(st.ShowConfidence)},
		{application.SettingAutoDetect, fmt.Sprint(st.AutoDetect)},
		{application.SettingShowNotifications, fmt.Sprint(st.ShowNotifications)},
		{application.SettingDecimalPlaces, places},
		{application.SettingTheme, string(st.Theme)},
	}
	return renderTable(cmd.OutOrStdout(), rows)
}

func (c *cli) credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage provider API keys in the OS keyring",
	}
	set := &cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key: %w", err)
			}
			if err := app.Credentials.Set(args[0], strings.TrimSpace(line)); err != nil {
				return err
			}
			success(cmd, "Stored key for %s", args[0])
			return nil
		},
	}
	rm := &cobra.Command{
		Use:   "rm <provider>",
		Short: "Delete a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.Credentials.Delete(args[0]); err != nil {
				return err
			}
			success(cmd, "Deleted key for %s", args[0])
			return nil
		},
	}
	list := &cobra.Command{
		Use:   "providers",
		Short: "Show providers and whether they are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.App(cmd.Context())
			if err != nil {
				return err
			}
			rows := pterm.TableData{{"Priority", "Provider", "Needs key", "Configured"}}
			for _, p := range app.Resolver.Providers() {
				rows = append(rows, []string{fmt.Sprint(p.Priority), p.ID, fmt.Sprint(p.RequiresCredential), fmt.Sprint(p.Configured)})
			}
			return renderTable(cmd.OutOrStdout(), rows)
		},
	}
	cmd.AddCommand(set, rm, list)
	return cmd
}
