package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
)

var (
	configPath string
	logLevel   string

	cfg config.Config
	log logger.Logger = &logger.Nop{}
)

var rootCmd = &cobra.Command{
	Use:   "offlinecache",
	Short: "Offline cache controller for the InterpreLab web app",
	Long: `offlinecache keeps the InterpreLab crisis-support resources available
when the network is not.

It fronts the web app origin, caches critical pages and API snapshots,
answers with offline fallbacks and relays crisis notifications.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if strings.TrimSpace(logLevel) != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded
		log = logger.NewWithWriter(os.Stderr, logger.ParseLevel(cfg.Log.Level))
		return nil
	},
}

// Execute runs the root command with signal-aware context.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'offlinecache -h' for help")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(
		newServeCmd(),
		newInstallCmd(),
		newActivateCmd(),
		newSyncCmd(),
		newPushCmd(),
	)
}
