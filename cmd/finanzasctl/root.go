package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

var (
	flagAccount string
	flagMonth   string
)

var (
	appConfig   *config.Config
	ledgerStack *cli.Ledger
	sessions    *services.Sessions
	flushSentry = func() {}
)

var rootCmd = &cobra.Command{
	Use:           "finanzasctl",
	Short:         "Budget ledger from the terminal",
	Long:          "Inspect and edit a finanzas budget directly against the configured store.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cli.LoadEnvFile()
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		appConfig = cfg

		// Keep the terminal for command output.
		cfg.LogLevel = "warn"
		var logger *applog.Logger
		logger, flushSentry = cli.SetupLogger(cfg, applog.ComponentApp)

		ledgerStack, err = cli.OpenLedger(cmd.Context(), cfg, logger.Logger, cli.LedgerOptions{Publish: true, NoCache: true})
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		sessions = services.NewSessions(ledgerStack.Service, services.SessionOptions{Logger: logger.Logger})
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		defer flushSentry()
		return ledgerStack.Close()
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, cli.Colored("error: "+err.Error(), cli.ColorRed))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagAccount, "account", "a", "local", "Account key")
	rootCmd.PersistentFlags().StringVarP(&flagMonth, "month", "m", "", "Month as YYYY-MM (default: current month)")
}

func openSession(cmd *cobra.Command) *services.Session {
	return sessions.Open(cmd.Context(), flagAccount)
}

func selectedMonth() (core.MonthKey, error) {
	if flagMonth == "" {
		return core.MonthKeyOf(time.Now()), nil
	}
	return core.ParseMonthKey(flagMonth)
}
