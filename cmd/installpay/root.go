package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/installpay/adapters/metrics"
	"github.com/artpar/installpay/bootstrap"
	"github.com/artpar/installpay/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "installpay",
	Short: "Installment billing and payment service",
	Long: `installpay serves a customer's installment invoices grouped by purchase,
prices renegotiation of overdue debt and early payment of future
installments, and runs card, PIX and boleto payment flows.

Quick start:
  installpay migrate                 # Create or update the schema
  installpay invoices import a.json  # Load invoices
  installpay serve                   # Start the HTTP API

Inspection:
  installpay groups <user>
  installpay renegotiate quote <user>
  installpay anticipate quote <user> --invoice <id>`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "installpay.yaml", "config file path")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openCore opens the database-only part of the application. Logs go to
// stderr so command output stays clean.
func openCore(cmd *cobra.Command) (*bootstrap.Core, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := bootstrap.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	return bootstrap.OpenCore(cmd.Context(), cfg, logger, metrics.Noop{})
}
