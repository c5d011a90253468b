package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/kudos4me/internal/feed"
	"github.com/ibeckermayer/kudos4me/internal/session/htmlsession"
)

func init() {
	scanCmd.Flags().String("self", "", "athlete id treated as the logged-in user")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan <file.html>",
	Short: "Lists the kudos a run would give on a saved dashboard page.",
	Long: "Runs the feed classifier and scanner over a saved page, such as a snapshot\n" +
		"written when a run found no entries. Nothing is clicked.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		html, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		page, err := htmlsession.FromHTML(string(html))
		if err != nil {
			return err
		}

		self, _ := cmd.Flags().GetString("self")
		controls, stats, err := feed.NewScanner().Scan(cmd.Context(), page.Locate(feed.WebFeedEntry), self)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Entry", "Participant", "Owner", "State"})
		for _, c := range controls {
			owner := c.OwnerID
			if owner == "" {
				owner = "?"
			}
			t.AppendRow(table.Row{c.Entry, c.Participant, owner, c.State})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Fprintf(cmd.OutOrStdout(),
			"%d entries: %d eligible, %d promotional, %d own, %d already given, %d without control, %d failed\n",
			stats.Entries, stats.Eligible, stats.Promotional, stats.Self, stats.Filled, stats.Absent, stats.Failed)
		return nil
	},
}
