package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clipmark/internal/config"
	"clipmark/internal/ledger"
	"clipmark/internal/logging"
)

func newStatsCommand(configFlag *string) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show win/lose/disconnect totals from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			led := ledger.New(cfg.Paths.CapturesDir, logging.NewNop())
			records, err := led.Records()
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No results recorded yet.")
				return nil
			}

			var start time.Time
			if days > 0 {
				y, m, d := time.Now().AddDate(0, 0, -(days - 1)).Date()
				start = time.Date(y, m, d, 0, 0, 0, 0, time.Local)
			}

			perDay := ledger.AggregateByDay(records, start, time.Time{})
			rows := make([][]string, 0, len(perDay))
			for _, day := range perDay {
				winRate := "-"
				if decided := day.Win + day.Lose; decided > 0 {
					winRate = fmt.Sprintf("%.1f%%", float64(day.Win)/float64(decided)*100)
				}
				rows = append(rows, []string{
					day.Date.Format("2006-01-02"),
					strconv.Itoa(day.Win),
					strconv.Itoa(day.Lose),
					strconv.Itoa(day.Disconnect),
					winRate,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Date", "Win", "Lose", "DC", "Win rate"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
			))

			totals := ledger.ComputeTotals(records)
			fmt.Fprintf(out, "Total: %d win, %d lose, %d disconnect (win rate %.1f%%)\n",
				totals.Win, totals.Lose, totals.Disconnect, totals.WinRate)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Limit the per-day table to the last N days")
	return cmd
}
