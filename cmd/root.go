// Package cmd wires the order client into a cobra CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grubslash/client/config"
	"github.com/grubslash/client/logger"
)

var (
	cfgPath string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "grubslash",
	Short: "Order food at a discount through GrubSlash",
	Long: `GrubSlash client for discounted group orders.

Paste an Uber Eats group order link, get a quote, submit it, and chat
with the agent placing your order.

Quick start:
  grubslash login            # Authenticate
  grubslash order <link>     # Validate a group link and submit it
  grubslash chat             # Talk to the agent on your active order
  grubslash history          # Past orders`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(logger.Config{DataDir: cfg.DataDir, DevMode: cfg.DevMode})
		return nil
	},
}

// Execute runs the root command until completion or interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.grubslash/config.yaml)")
}
