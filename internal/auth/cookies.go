package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/kudos4me/internal/config"
)

// SessionCookie is the cookie that carries a logged-in Strava session.
const SessionCookie = "_strava4_session"

// sessionTTL bounds reuse of browser-session cookies, which carry no expiry.
const sessionTTL = 12 * time.Hour

// CookieStore handles storage of Strava session cookies between runs
type CookieStore struct {
	path string
	now  func() time.Time
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path, now: time.Now}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "cookies.json"), nil
}

// Save persists the Strava cookies among cookies to disk
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	dir := filepath.Dir(cs.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	now := cs.now()
	strava := StravaCookies(cookies)

	var expiresAt time.Time
	for _, c := range strava {
		if c.Name != SessionCookie {
			continue
		}
		if c.Expires > 0 {
			expiresAt = time.Unix(int64(c.Expires), 0)
		} else {
			expiresAt = now.Add(sessionTTL)
		}
	}

	stored := StoredCookies{
		Cookies:    strava,
		CapturedAt: now,
		ExpiresAt:  expiresAt,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid checks if stored cookies hold an unexpired session
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}

	if stored.ExpiresAt.IsZero() || cs.now().After(stored.ExpiresAt) {
		return false
	}

	for _, c := range stored.Cookies {
		if c.Name == SessionCookie && c.Value != "" {
			return true
		}
	}
	return false
}

// Clear removes stored cookies
func (cs *CookieStore) Clear() error {
	err := os.Remove(cs.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// StravaCookies returns only the strava.com cookies among cookies
func StravaCookies(cookies []*network.Cookie) []*network.Cookie {
	var out []*network.Cookie
	for _, c := range cookies {
		d := strings.TrimPrefix(c.Domain, ".")
		if d == "strava.com" || strings.HasSuffix(d, ".strava.com") {
			out = append(out, c)
		}
	}
	return out
}
