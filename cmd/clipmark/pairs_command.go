package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"clipmark/internal/config"
	"clipmark/internal/logging"
	"clipmark/internal/pairs"
)

func newPairsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pairs",
		Short: "Show which recording each screenshot belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			p := pairs.New(
				cfg.Paths.CapturesDir,
				cfg.Paths.RecordingsDir,
				cfg.Pairing.Extensions,
				time.Duration(cfg.Pairing.MarginSeconds)*time.Second,
				logging.NewNop(),
			)
			mapping, err := p.Load()
			if err != nil {
				return fmt.Errorf("read pairs index: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(mapping) == 0 {
				fmt.Fprintln(out, "No pairs recorded yet.")
				return nil
			}

			names := make([]string, 0, len(mapping))
			for name := range mapping {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, filepath.Base(mapping[name])})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Screenshot", "Recording"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
