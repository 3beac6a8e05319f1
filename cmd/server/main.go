package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/manhle/roomchat-server/internal/app"
	"github.com/manhle/roomchat-server/internal/config"
	"github.com/manhle/roomchat-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "roomchat-server",
		Short:         "Real-time room-based chat backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootstrapLogger := log.New("info")
			cfg, path, err := config.Load(bootstrapLogger, configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting roomchat server")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
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

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}
