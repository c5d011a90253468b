package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/kudos4me/internal/scheduler"
)

// scheduleSlack is added to the run budget to bound a scheduled job.
const scheduleSlack = 5 * time.Minute

func init() {
	scheduleCmd.Flags().String("timezone", "", "timezone for the cron schedule (default local)")
	scheduleCmd.Flags().Bool("now", false, "also run once at startup")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run on the schedule.cron expression until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		tz, _ := cmd.Flags().GetString("timezone")
		s, err := scheduler.New(tz, cfg.Run.MaxDuration()+scheduleSlack)
		if err != nil {
			return err
		}

		job := func(ctx context.Context) error {
			_, err := a.RunOnce(ctx)
			return err
		}
		if err := s.AddJob("kudos", cfg.Schedule.Cron, job); err != nil {
			return err
		}

		ctx := cmd.Context()
		if now, _ := cmd.Flags().GetBool("now"); now {
			if err := s.RunNow(ctx, "kudos", job); err != nil {
				slog.Error("run failed", "err", err)
			}
		}

		s.Start(ctx)
		for _, j := range s.ListJobs() {
			slog.Info("next run", "job", j.Name, "at", j.NextRun.Format(time.DateTime))
		}
		<-ctx.Done()
		<-s.Stop().Done()
		return nil
	},
}
