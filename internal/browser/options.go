// Package browser provides the shared Chrome launch configuration with
// anti-bot-detection measures for both browser drivers.
package browser

import (
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

// DefaultUserAgent is a realistic Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	windowWidth  = 1920
	windowHeight = 1080
)

// Flag is a Chrome command line switch. An empty Value is a bare switch.
type Flag struct {
	Name  string
	Value string
}

// StealthFlags are the switches every browser instance launches with.
var StealthFlags = []Flag{
	// Prevent navigator.webdriver = true detection
	{Name: "disable-blink-features", Value: "AutomationControlled"},

	// Disable automation-related extensions and features
	{Name: "disable-extensions"},
	{Name: "disable-default-apps"},
	{Name: "disable-infobars"},
	{Name: "no-first-run"},
	{Name: "no-default-browser-check"},
}

// Options returns chromedp allocator options with anti-bot-detection measures.
func Options(headless bool) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.UserAgent(DefaultUserAgent),
		chromedp.WindowSize(windowWidth, windowHeight),
	)
	for _, f := range StealthFlags {
		if f.Value == "" {
			opts = append(opts, chromedp.Flag(f.Name, true))
		} else {
			opts = append(opts, chromedp.Flag(f.Name, f.Value))
		}
	}

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	return opts
}

// Launcher returns a go-rod launcher with the same measures as Options.
func Launcher(headless bool) *launcher.Launcher {
	l := launcher.New().
		Headless(headless).
		Set(flags.Flag("user-agent"), DefaultUserAgent).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", windowWidth, windowHeight))
	for _, f := range StealthFlags {
		if f.Value == "" {
			l = l.Set(flags.Flag(f.Name))
		} else {
			l = l.Set(flags.Flag(f.Name), f.Value)
		}
	}
	if headless {
		l = l.Set(flags.Flag("disable-gpu"))
	}
	return l
}
