package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"earnings-tracker/internal/models"
	"earnings-tracker/internal/security"
	"earnings-tracker/internal/sp500"
	"earnings-tracker/pkg/utils"
)

func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuotesCmd(app))
	rootCmd.AddCommand(newSessionCmd(app))
	rootCmd.AddCommand(newSP500Cmd(app))
}

func newQuotesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "quotes SYMBOL...",
		Short:   "Fetch live quotes in rate-friendly chunks",
		Args:    cobra.MinimumNArgs(1),
		Example: "  earnings quotes AAPL MSFT NVDA",
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols, err := security.NormalizeSymbols(args)
			if err != nil {
				return err
			}
			svc, err := app.service()
			if err != nil {
				return err
			}
			res, err := svc.Quotes(cmd.Context(), symbols)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				failed := make(map[string]string, len(res.Failures))
				for _, f := range res.Failures {
					failed[f.Symbol] = f.Err.Error()
				}
				return output.JSON(map[string]interface{}{
					"quotes":   res.Quotes,
					"failures": failed,
					"chunks":   res.Chunks,
				})
			}

			table := NewTable(output, "SYMBOL", "PRICE", "CHANGE", "OPEN", "HIGH", "LOW", "PREV CLOSE")
			for _, q := range res.Quotes {
				table.AddRow(q.Symbol,
					utils.FormatUSD(q.CurrentPrice),
					output.signed(q.Change, utils.FormatChange(q.Change)+" ("+utils.FormatPercent(q.ChangePercent)+")"),
					utils.FormatUSD(q.Open),
					utils.FormatUSD(q.DayHigh),
					utils.FormatUSD(q.DayLow),
					utils.FormatUSD(q.PreviousClose),
				)
			}
			table.Render()
			output.Dim("%d quote(s) in %d chunk(s)", len(res.Quotes), res.Chunks)
			if len(res.Failures) > 0 {
				output.Warning("No quote for: %s", strings.Join(res.FailedSymbols(), ", "))
			}
			return nil
		},
	}
}

func newSessionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current US market session",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service()
			if err != nil {
				return err
			}
			clock := svc.Clock()
			now := clock.Now()
			status := clock.StatusAt(now)
			next := clock.NextTransition(now)
			refresh := svc.RefreshInterval(now)

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"status":          status,
					"trading":         status.IsTrading(),
					"time":            now,
					"nextTransition":  next,
					"nextStatus":      clock.StatusAt(next),
					"refreshInterval": refresh.String(),
				})
			}

			output.Printf("%s\n", output.Session(status))
			output.Printf("  Exchange time:  %s\n", now.Format("Mon 2006-01-02 15:04 MST"))
			output.Printf("  Next change:    %s (%s, in %s)\n",
				next.Format("Mon 15:04"), clock.StatusAt(next), FormatDuration(next.Sub(now)))
			output.Printf("  Refresh every:  %s\n", FormatDuration(refresh))
			return nil
		},
	}
}

func newSP500Cmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sp500 SYMBOL...",
		Short: "Check S&P 500 membership",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols, err := security.NormalizeSymbols(args)
			if err != nil {
				return err
			}
			svc, err := app.service()
			if err != nil {
				return err
			}
			set, err := svc.Membership(cmd.Context())
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			members := make(map[string]bool, len(symbols))
			for _, s := range symbols {
				members[s] = sp500.IsMember(s, set)
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"constituents": len(set),
					"members":      members,
				})
			}

			for _, sym := range symbols {
				if members[sym] {
					output.Printf("  %s %s\n", PadRight(sym, 6), output.Green("✓ member"))
				} else {
					output.Printf("  %s %s\n", PadRight(sym, 6), output.DimText("not a member"))
				}
			}
			output.Dim("%d constituents loaded", len(set))
			return nil
		},
	}
}

func newAnalyzeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Summarize the latest earnings report with an LLM",
		Long: `Searches for the company's most recent earnings press release, extracts its
text and asks the configured provider (openai or gemini) for a summary,
overall sentiment and key takeaways. PDF reports are not supported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.analyzer(cmd)
			if err != nil {
				return err
			}
			output := NewOutput(cmd)
			if !output.IsJSON() {
				output.Dim("Analyzing %s earnings report...", strings.ToUpper(args[0]))
			}

			report, err := svc.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(report)
			}
			renderAnalysis(output, report)
			return nil
		},
	}
}

func renderAnalysis(output *Output, r models.ReportAnalysis) {
	output.Bold("%s %s Earnings", r.Symbol, r.Quarter)
	output.Printf("  Sentiment: %s\n", output.Sentiment(r.Sentiment))
	output.Println()
	output.Println(r.Summary)
	output.Println()
	output.Bold("Key Takeaways")
	for _, t := range r.KeyTakeaways {
		output.Printf("  • %s\n", t)
	}
	output.Println()
	output.Dim("Source: %s", r.ReportURL)
}
