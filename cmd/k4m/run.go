package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/kudos4me/internal/config"
)

func init() {
	runCmd.Flags().String("mode", "", "override run.mode (single or scroll)")
	runCmd.Flags().String("driver", "", "override browser.driver (chromedp or rod)")
	runCmd.Flags().Bool("headless", true, "run Chrome without a window")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Give kudos once and print the run summary.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := a.RunOnce(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "%d kudos given in %d passes (%s after %s)\n",
			sum.KudosGiven, sum.Passes, sum.StopReason, sum.Elapsed().Round(time.Second))
		return err
	},
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Run.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("driver") {
		cfg.Browser.Driver, _ = flags.GetString("driver")
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless, _ = flags.GetBool("headless")
	}
	return cfg.Validate()
}
