package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/socialpulse/internal/app"
	"github.com/sakif/socialpulse/internal/config"
)

var (
	envFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "socialpulse",
	Short: "Competitor trend tracking for YouTube and Instagram",
	Long: `socialpulse watches the YouTube channels and Instagram accounts of your
competitors, asks a generative model what is trending, and emails you a report.

Configuration comes from the environment, optionally seeded from a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func execute() error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load if present")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides DB_PATH)")

	rootCmd.AddCommand(serveCmd, summarizeCmd, resendCmd, verifyCmd)
}

// initConfig loads configuration and builds the logger. Flags changed on the
// command line win over the environment.
func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(envFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	logger.Debug("configuration loaded",
		slog.String("database", cfg.Server.DBPath),
		slog.String("resend_policy", cfg.Pipeline.ResendPolicy),
		slog.String("sweep_schedule", cfg.Pipeline.SweepSchedule),
	)
	return nil
}

// withApp wires the application for a one-shot command and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}
