package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"clipmark/internal/config"
	"clipmark/internal/daemon"
	"clipmark/internal/logging"
	"clipmark/internal/obsgw"
)

func newRunCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the detection daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, path, exists, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !exists {
				fmt.Fprintf(os.Stderr, "warn: no config file at %s, using defaults\n", path)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.StateDir, "clipmark.log")},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			gw, err := obsgw.Connect(cfg.OBS.Host, cfg.OBS.Port, cfg.OBS.Password, logger)
			if err != nil {
				return fmt.Errorf("connect to OBS: %w", err)
			}
			defer gw.Close()

			d, err := daemon.New(cfg, gw, logger)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			d.Stop()
			return nil
		},
	}
}
