//go:build linux || darwin

package chromesession

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/require"
)

// fakeDevTools answers just enough of the DevTools protocol for chromedp to
// attach to one blank page. Browser.close kills the process recorded in
// pidFile, the way Chrome exits.
func fakeDevTools(t *testing.T, pidFile string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()

		send := func(v any) error {
			b, _ := json.Marshal(v)
			return wsutil.WriteServerText(conn, b)
		}
		for {
			data, err := wsutil.ReadClientText(conn)
			if err != nil {
				return
			}
			var msg struct {
				ID        int64  `json:"id"`
				Method    string `json:"method"`
				SessionID string `json:"sessionId,omitempty"`
			}
			if err := json.Unmarshal(data, &msg); err != nil {
				return
			}

			result := map[string]any{}
			switch msg.Method {
			case "Target.attachToTarget":
				result["sessionId"] = "S1"
			case "Runtime.evaluate":
				result["result"] = map[string]any{"type": "object", "className": "Window"}
			}
			reply := map[string]any{"id": msg.ID, "result": result}
			if msg.SessionID != "" {
				reply["sessionId"] = msg.SessionID
			}
			if err := send(reply); err != nil {
				return
			}

			switch {
			case msg.Method == "Target.setDiscoverTargets" && msg.SessionID == "":
				_ = send(map[string]any{
					"method": "Target.targetCreated",
					"params": map[string]any{"targetInfo": map[string]any{
						"targetId": "T1", "type": "page", "title": "", "url": "about:blank",
						"attached": false, "canAccessOpener": false,
					}},
				})
			case msg.Method == "Browser.close":
				if pid, err := readPID(pidFile); err == nil {
					_ = syscall.Kill(pid, syscall.SIGTERM)
				}
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeChrome writes an executable that records its pid, prints the
// DevTools banner for srv and then idles like a browser.
func fakeChrome(t *testing.T, srv *httptest.Server, pidFile string) string {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/devtools/browser/fake"
	script := fmt.Sprintf("#!/bin/sh\necho $$ > %s\necho \"DevTools listening on %s\"\nexec sleep 1000\n", pidFile, wsURL)
	path := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func readPID(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func TestBrowserOutlivesStartup(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "chrome.pid")
	exe := fakeChrome(t, fakeDevTools(t, pidFile), pidFile)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	s, err := NewWithOptions(ctx, chromedp.ExecPath(exe))
	require.NoError(t, err)
	cancel()

	pid, err := readPID(pidFile)
	require.NoError(t, err)
	require.Never(t, func() bool { return !alive(pid) }, 500*time.Millisecond, 50*time.Millisecond,
		"browser died after startup")

	require.NoError(t, s.Close())
	require.Eventually(t, func() bool { return !alive(pid) }, 5*time.Second, 50*time.Millisecond)
}

func TestStartupFailure(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\necho no display >&2\nexit 1\n"), 0755))

	_, err := NewWithOptions(context.Background(), chromedp.ExecPath(exe))
	require.ErrorContains(t, err, "failed to start browser")
}
