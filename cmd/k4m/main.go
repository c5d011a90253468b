// Command k4m is a dev/ops CLI for kudos4me: one-off and scheduled runs,
// run history, offline feed scans and browser fingerprint checks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/kudos4me/internal/app"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "k4m",
	Short: "k4m runs and inspects the kudos4me Strava kudos bot.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment. An explicit
// --log-level wins over the configured one.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("log-level") {
		logging.Init(cfg.Log.Level)
	}
	return cfg, nil
}

// newApp builds an App from cfg and the Strava credentials.
func newApp(cfg *config.Config) (*app.App, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, creds)
}
