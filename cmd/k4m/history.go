package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/kudos4me/internal/store"
)

func init() {
	historyCmd.Flags().IntP("limit", "n", 10, "number of runs to show")
	historyCmd.Flags().Int("top", 10, "number of athletes to show")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Prints recent runs and the athletes given the most kudos.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := store.DefaultPath()
		if err != nil {
			return err
		}
		s, err := store.New(path)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		top, _ := cmd.Flags().GetInt("top")

		runs, err := s.RecentRuns(ctx, limit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Started", "Mode", "Kudos", "Passes", "Stopped", "Elapsed", "Error"})
		for _, r := range runs {
			t.AppendRow(table.Row{
				r.StartedAt.Local().Format(time.DateTime),
				r.Mode,
				r.KudosGiven,
				r.Passes,
				r.StopReason,
				r.Elapsed().Round(time.Second),
				r.Error,
			})
		}
		total, err := s.TotalKudos(ctx)
		if err != nil {
			return err
		}
		t.AppendFooter(table.Row{"", "", total, "", "", "", ""})
		t.SetStyle(table.StyleRounded)
		t.Render()

		athletes, err := s.TopAthletes(ctx, top)
		if err != nil {
			return err
		}
		if len(athletes) == 0 {
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout())
		at := table.NewWriter()
		at.SetOutputMirror(cmd.OutOrStdout())
		at.AppendHeader(table.Row{"Athlete", "Kudos"})
		for _, a := range athletes {
			at.AppendRow(table.Row{a.OwnerID, a.Kudos})
		}
		at.SetStyle(table.StyleRounded)
		at.Render()
		return nil
	},
}
