package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/heartbeat-monitor/config"
	"github.com/angeloszaimis/heartbeat-monitor/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("heartbeat-monitor failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log := logger.New(cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment)

		a, err := newApp(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to build application: %w", err)
		}

		return a.run(cmd.Context())
	}

	root := &cobra.Command{
		Use:   "heartbeat-monitor",
		Short: "Dead man's switch for devices and jobs",
		Long: `heartbeat-monitor keeps a registry of monitored devices and jobs.
Each one must send a heartbeat before its timeout elapses; a monitor
that stays silent is marked DOWN and an alert is sent.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expiry engine",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "heartbeat-monitor %s (%s)\n", version, commit)
		},
	})

	return root
}
