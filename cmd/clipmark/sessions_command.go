package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"clipmark/internal/config"
	"clipmark/internal/store"
)

func newSessionsCommand(configFlag *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := store.Open(filepath.Join(cfg.Paths.StateDir, "clipmark.db"))
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer st.Close()

			sessions, err := st.Sessions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(sessions))
			for _, sess := range sessions {
				duration := "-"
				if !sess.Open() {
					duration = sess.EndedAt.Sub(sess.StartedAt).Round(time.Second).String()
				}
				video := sess.VideoPath
				if video == "" {
					video = "-"
				}
				note := ""
				if sess.ForcedStop {
					note = "forced stop"
				}
				rows = append(rows, []string{
					sess.StartedAt.Local().Format("2006-01-02 15:04:05"),
					duration,
					sess.StartMethod,
					filepath.Base(video),
					note,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Duration", "Method", "Recording", "Notes"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list (0 for all)")
	return cmd
}
