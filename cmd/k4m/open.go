package main

import (
	"fmt"
	"log/slog"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/kudos4me/internal/auth"
	"github.com/ibeckermayer/kudos4me/internal/config"
)

func init() {
	rootCmd.AddCommand(openCmd, logoutCmd)
}

var openCmd = &cobra.Command{
	Use:       "open <config|cache>",
	Short:     "Opens the config file or the cache directory.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"config", "cache"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			path string
			err  error
		)
		switch args[0] {
		case "config":
			path, err = config.ConfigPath()
		case "cache":
			path, err = config.CacheDir()
		default:
			return fmt.Errorf("unknown target %q: want config or cache", args[0])
		}
		if err != nil {
			return err
		}

		slog.Info("opening", "path", path)
		return browser.OpenFile(path)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forgets the saved Strava session so the next run logs in again.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := auth.DefaultCookieStorePath()
		if err != nil {
			return err
		}
		return auth.NewCookieStore(path).Clear()
	},
}
