package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deskline/deskline-server/internal/app"
	"github.com/deskline/deskline-server/internal/config"
	"github.com/deskline/deskline-server/internal/log"
)

var (
	configPath string
	overrides  config.Config
)

var rootCmd = &cobra.Command{
	Use:   "deskline-server",
	Short: "Support chat server that routes requesters to agents",
	Long: `deskline-server mediates real-time support chats.

A requester's first message opens a ticket; agents watching the desk can
list open tickets, claim one, and chat one-on-one with the requester until
the ticket is closed.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		bootstrapLog := log.New(overrides.LogLevel)

		cfg, cfgPath, err := config.Load(bootstrapLog, configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg.UpdateFrom(overrides)

		logger := log.New(cfg.LogLevel)
		logger.Info().Str("config", cfgPath).Str("addr", cfg.Addr).Msg("starting deskline server")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(&cfg, logger)
		if err != nil {
			return err
		}

		if err := application.Run(ctx); err != nil {
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")
	flags.StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.DatabasePath, "db", "", "path to the sqlite database")
	flags.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
