package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func renderTable(w io.Writer, rows pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln(format, args...))
}

func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprint(cmd.OutOrStdout(), pterm.Info.Sprintfln(format, args...))
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// printOutcome renders a conversion. Detection confidence is shown only when
// the user keeps showConfidence on.
func printOutcome(cmd *cobra.Command, out *application.ConversionOutcome, st domain.UserSettings) error {
	if jsonFlag(cmd) {
		return renderJSON(cmd.OutOrStdout(), out)
	}
	res := out.Result
	rows := pterm.TableData{{"Property", "Value"}}
	if out.Detected != nil {
		detected := fmt.Sprintf("%s (%s)", out.Detected.MatchedText, out.Detected.CurrencyCode)
		if st.ShowConfidence {
			detected = fmt.Sprintf("%s (%s, %.0f%%)", out.Detected.MatchedText, out.Detected.CurrencyCode, out.Detected.Confidence*100)
		}
		rows = append(rows, []string{"Detected", detected})
	}
	rows = append(rows,
		[]string{"From", res.OriginalAmount.String() + " " + res.FromCurrency},
		[]string{"To", out.Display + " " + res.ToCurrency},
		[]string{"Rate", res.Rate.String()},
		[]string{"Provider", res.Source},
		[]string{"As of", res.Timestamp.Format(time.RFC3339)},
	)
	var flags []string
	if res.Cached {
		flags = append(flags, "cached")
	}
	if res.Offline {
		flags = append(flags, "offline")
	}
	if out.Record != nil && !out.Persisted {
		flags = append(flags, "not saved")
	}
	if len(flags) > 0 {
		rows = append(rows, []string{"Notes", strings.Join(flags, ", ")})
	}
	return renderTable(cmd.OutOrStdout(), rows)
}
