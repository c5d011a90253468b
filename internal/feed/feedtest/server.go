package feedtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// KudosScript flips an unfilled control to filled when it is clicked, the
// way Strava's feed reacts to a kudos.
const KudosScript = `<script>
document.addEventListener("click", (e) => {
  const u = e.target.closest('[data-testid="unfilled_kudos"]');
  if (u) u.setAttribute("data-testid", "filled_kudos");
});
</script>`

// NewServer serves a login form that redirects to a dashboard holding
// entries, for driving a real browser. It is closed with the test.
func NewServer(t testing.TB, selfID string, entries ...string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		page := strings.Replace(LoginPage, "<form>", `<form method="post" action="/session">`, 1)
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "_strava4_session", Value: "test", Path: "/"})
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		page := strings.Replace(Dashboard(selfID, entries...), "</body>", KudosScript+"</body>", 1)
		fmt.Fprint(w, page)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
