package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/salon-chat/salon-server/internal/app"
	"github.com/salon-chat/salon-server/internal/config"
	"github.com/salon-chat/salon-server/internal/log"
)

var (
	flagConfig string
	flagAddr   string
	flagDBPath string
	flagLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "salon-server",
	Short: "Room based chat server",
	Long:  "salon-server hosts a websocket chat service with named rooms, message history and image uploads.",
	RunE: func(cmd *cobra.Command, args []string) error {
		bootLogger := log.New("info")

		cfg, cfgPath, err := config.Load(bootLogger, flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if flagAddr != "" {
			cfg.Addr = flagAddr
		}
		if flagDBPath != "" {
			cfg.DatabasePath = flagDBPath
		}
		if flagLevel != "" {
			cfg.LogLevel = flagLevel
		}

		logger := log.New(cfg.LogLevel)
		logger.Info().Str("config", cfgPath).Msg("configuration loaded")

		a, err := app.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info().Str("addr", cfg.Addr).Msg("starting server")
		return a.Run(ctx)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to config file")
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address, overrides config")
	rootCmd.Flags().StringVar(&flagDBPath, "db", "", "sqlite database path, overrides config")
	rootCmd.Flags().StringVar(&flagLevel, "log-level", "", "log level, overrides config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
