package main

import (
	"bufio"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/kudos4me/internal/browser"
)

func init() {
	botTestCmd.Flags().String("url", "https://bot.sannysoft.com", "fingerprint test page")
	rootCmd.AddCommand(botTestCmd)
}

var botTestCmd = &cobra.Command{
	Use:   "bot-test",
	Short: "Opens a fingerprint test page with the run's stealth browser options.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		slog.Info("opening fingerprint test page", "url", url)

		// Windowed so the results can be inspected.
		allocCtx, cancel := chromedp.NewExecAllocator(cmd.Context(), browser.Options(false)...)
		defer cancel()

		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		err := chromedp.Run(ctx,
			chromedp.Navigate(url),
			chromedp.WaitVisible("body", chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("failed to navigate: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Press Enter to close the browser...")
		_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		return nil
	},
}
