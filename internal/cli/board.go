package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"earnings-tracker/internal/earnings"
	"earnings-tracker/internal/models"
	"earnings-tracker/pkg/utils"
)

func addBoardCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newBoardCmd(app))
	rootCmd.AddCommand(newStockCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
}

func newBoardCmd(app *App) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the earnings board for a day",
		Example: `  earnings board
  earnings board --date 2026-10-20 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service()
			if err != nil {
				return err
			}
			board, err := svc.ForDate(cmd.Context(), date)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(board)
			}
			renderBoard(output, board)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "report date YYYY-MM-DD (default: today in New York)")
	return cmd
}

func newStockCmd(app *App) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "stock SYMBOL",
		Short: "Show one reporting company with price history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service()
			if err != nil {
				return err
			}
			stock, err := svc.Stock(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(stock)
			}
			renderStock(output, stock)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "report date YYYY-MM-DD (default: today in New York)")
	return cmd
}

func newWatchCmd(app *App) *cobra.Command {
	var (
		date       string
		iterations int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the board on the session's cadence",
		Long: `Rebuilds the board repeatedly. The pause between refreshes follows the
market session: 30s around announcement windows, 60s during regular hours
and 5m otherwise. Failed refreshes are reported and retried on the next tick.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service()
			if err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			for i := 0; iterations == 0 || i < iterations; i++ {
				if i > 0 {
					wait := svc.RefreshInterval(svc.Clock().Now())
					if !output.IsJSON() {
						output.Dim("Next refresh in %s", FormatDuration(wait))
					}
					if err := utils.SleepContext(ctx, wait); err != nil {
						return nil
					}
				}

				board, err := svc.ForDate(ctx, date)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					app.Logger.Error().Err(err).Msg("Board refresh failed")
					output.Error("Refresh failed: %v", err)
					continue
				}
				if output.IsJSON() {
					if err := output.JSON(board); err != nil {
						return err
					}
					continue
				}
				renderBoard(output, board)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "report date YYYY-MM-DD (default: today in New York)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "stop after this many refreshes (0 = until interrupted)")
	return cmd
}

func renderBoard(output *Output, board earnings.Board) {
	output.Printf("Earnings for %s  %s\n", board.Date, output.Session(board.Session))
	output.Dim("Updated %s  run %s", board.GeneratedAt.Format("15:04:05 MST"), board.RunID)
	output.Println()

	if len(board.Major) == 0 && len(board.Other) == 0 {
		output.Warning("No companies reporting on %s", board.Date)
	}
	if board.Partitioned {
		stockTable(output, "S&P 500", board.Major)
		stockTable(output, "Other Companies", board.Other)
	} else {
		stockTable(output, "Reporting Today", board.Other)
	}

	if len(board.Failures) > 0 {
		output.Warning("%d symbol(s) without quotes:", len(board.Failures))
		for _, f := range board.Failures {
			output.Dim("  %s: %s", f.Symbol, f.Error)
		}
	}
}

func stockTable(output *Output, title string, stocks []models.EnrichedStock) {
	if len(stocks) == 0 {
		return
	}
	output.Bold("%s (%d)", title, len(stocks))

	table := NewTable(output, "SYMBOL", "COMPANY", "WHEN", "PRICE", "CHANGE", "AFTER HRS", "EPS EST", "EPS ACT", "RESULT")
	for _, s := range stocks {
		var est, act *float64
		if s.Earnings.Estimate != nil {
			est = s.Earnings.Estimate.EPS
		}
		if s.Earnings.Actual != nil {
			act = &s.Earnings.Actual.EPS
		}
		ah := placeholder
		if s.Price.AfterHours != nil {
			ah = output.signed(s.Price.AfterHours.Change, utils.FormatPercent(s.Price.AfterHours.ChangePercent))
		}
		table.AddRow(
			s.Symbol,
			TruncateString(s.CompanyName, 24),
			string(s.Earnings.Timing),
			utils.FormatUSD(s.Price.Current),
			output.signed(s.Price.Change, utils.FormatPercent(s.Price.ChangePercent)),
			ah,
			FormatEPS(est),
			FormatEPS(act),
			output.Beat(s.Earnings.BeatStatus),
		)
	}
	table.Render()
	output.Println()
}

func renderStock(output *Output, s models.EnrichedStock) {
	output.Bold("%s  %s", s.Symbol, s.CompanyName)
	if s.Industry != "" {
		output.Dim("%s  market cap %s", s.Industry, FormatMarketCap(s.MarketCap))
	}
	output.Println()

	output.Printf("  Price:       %s  %s\n", utils.FormatUSD(s.Price.Current),
		output.signed(s.Price.Change, fmt.Sprintf("%s (%s)", utils.FormatChange(s.Price.Change), utils.FormatPercent(s.Price.ChangePercent))))
	if ah := s.Price.AfterHours; ah != nil {
		output.Printf("  After Hours: %s  %s\n", utils.FormatUSD(ah.Price),
			output.signed(ah.Change, fmt.Sprintf("%s (%s)", utils.FormatChange(ah.Change), utils.FormatPercent(ah.ChangePercent))))
	}
	output.Printf("  Session:     %s\n", output.Session(s.MarketStatus))
	output.Println()

	e := s.Earnings
	output.Printf("  Reports:     %s\n", FormatTiming(e.Timing, e.ScheduledTime))
	if e.Estimate != nil {
		output.Printf("  Estimate:    EPS %s  Revenue %s\n", FormatEPS(e.Estimate.EPS), FormatMarketCap(e.Estimate.Revenue))
	}
	if e.Status == models.EarningsReleased && e.Actual != nil {
		output.Printf("  Actual:      EPS %s  Revenue %s  %s\n", FormatEPS(&e.Actual.EPS), FormatMarketCap(e.Actual.Revenue), output.Beat(e.BeatStatus))
	} else {
		output.Printf("  Status:      %s\n", output.DimText("pending"))
	}

	if len(s.PriceHistory) > 0 {
		output.Println()
		output.Bold("Price History (%d days)", len(s.PriceHistory))
		table := NewTable(output, "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
		for _, b := range s.PriceHistory {
			table.AddRow(b.Date,
				fmt.Sprintf("%.2f", b.Open),
				fmt.Sprintf("%.2f", b.High),
				fmt.Sprintf("%.2f", b.Low),
				fmt.Sprintf("%.2f", b.Close),
				utils.FormatQuantity(b.Volume),
			)
		}
		table.Render()
	}
}
