// Command kudos4me logs into Strava, gives kudos across the dashboard
// feed and exits. It is meant to be run from cron or a CI schedule.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ibeckermayer/kudos4me/internal/app"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/fault"
	"github.com/ibeckermayer/kudos4me/internal/logging"
)

func main() {
	logging.Init("info")

	cfg, err := config.LoadOrCreate()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logging.Init(cfg.Log.Level)

	creds, err := config.LoadCredentials()
	if err != nil {
		slog.Error("missing credentials", "err", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, creds)
	if err != nil {
		slog.Error("failed to start", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	slog.Info("kudos4me starting", "mode", cfg.Run.Mode, "driver", cfg.Browser.Driver)
	_, err = a.RunOnce(ctx)
	stop()
	a.Close()

	if fault.IsFatal(err) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}
