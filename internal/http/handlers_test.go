package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"tradejournal/internal/auth"
	"tradejournal/internal/core"
)

func postForm(srv *Server, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func flashOf(rr *httptest.ResponseRecorder) string {
	for _, c := range rr.Result().Cookies() {
		if c.Name == flashCookieName && c.MaxAge >= 0 {
			v, _ := url.QueryUnescape(c.Value)
			return v
		}
	}
	return ""
}

func TestRegisterFlow(t *testing.T) {
	srv, store := newTestServer(t)

	// Form renders.
	if rr := get(srv, "/register"); rr.Code != http.StatusOK {
		t.Fatalf("GET /register status=%d", rr.Code)
	}

	// Missing fields.
	rr := postForm(srv, "/register", url.Values{"username": {"mara"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/register" {
		t.Fatalf("status=%d location=%s", rr.Code, rr.Header().Get("Location"))
	}
	if !strings.Contains(flashOf(rr), "required") {
		t.Fatalf("flash=%q, want required-fields message", flashOf(rr))
	}

	// Success redirects to login.
	rr = postForm(srv, "/register", url.Values{"username": {"mara"}, "password": {"secret"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("status=%d location=%s", rr.Code, rr.Header().Get("Location"))
	}
	u, err := store.GetUserByUsername(context.Background(), "mara")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.PasswordHash == "secret" {
		t.Fatal("password stored in clear")
	}

	// Duplicate username.
	rr = postForm(srv, "/register", url.Values{"username": {"mara"}, "password": {"x"}})
	if rr.Header().Get("Location") != "/register" {
		t.Fatalf("location=%s, want /register", rr.Header().Get("Location"))
	}
	if !strings.Contains(flashOf(rr), "taken") {
		t.Fatalf("flash=%q, want username-taken message", flashOf(rr))
	}
}

func TestLoginFlow(t *testing.T) {
	srv, store := newTestServer(t)
	_, _ = loginAs(t, srv, store, "mara") // seeds user mara/secret

	// Wrong password.
	rr := postForm(srv, "/login", url.Values{"username": {"mara"}, "password": {"nope"}})
	if rr.Header().Get("Location") != "/login" {
		t.Fatalf("location=%s, want /login", rr.Header().Get("Location"))
	}
	if !strings.Contains(flashOf(rr), "Invalid username or password") {
		t.Fatalf("flash=%q", flashOf(rr))
	}

	// Unknown user gets the same message.
	rr = postForm(srv, "/login", url.Values{"username": {"ghost"}, "password": {"nope"}})
	if !strings.Contains(flashOf(rr), "Invalid username or password") {
		t.Fatalf("flash=%q", flashOf(rr))
	}

	// Success sets the session cookie and redirects to the dashboard.
	rr = postForm(srv, "/login", url.Values{"username": {"mara"}, "password": {"secret"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("status=%d location=%s", rr.Code, rr.Header().Get("Location"))
	}
	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("no session cookie set")
	}
	if !session.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}

	// The cookie opens the dashboard.
	if rr := get(srv, "/dashboard", session); rr.Code != http.StatusOK {
		t.Fatalf("GET /dashboard status=%d", rr.Code)
	}
}

func TestLoginNextRedirect(t *testing.T) {
	srv, store := newTestServer(t)
	_, _ = loginAs(t, srv, store, "mara")

	rr := postForm(srv, "/login?next=/dashboard", url.Values{"username": {"mara"}, "password": {"secret"}})
	if rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("location=%s", rr.Header().Get("Location"))
	}

	// External targets are not followed.
	rr = postForm(srv, "/login?next=https://evil.example", url.Values{"username": {"mara"}, "password": {"secret"}})
	if rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("location=%s, want /dashboard", rr.Header().Get("Location"))
	}
}

func TestLogout(t *testing.T) {
	srv, store := newTestServer(t)
	cookie, _ := loginAs(t, srv, store, "mara")

	rr := get(srv, "/logout", cookie)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("status=%d location=%s", rr.Code, rr.Header().Get("Location"))
	}

	// The old token no longer opens the dashboard.
	rr = get(srv, "/dashboard", cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d, want redirect to login", rr.Code)
	}
}

func TestDashboardShowsReport(t *testing.T) {
	srv, store := newTestServer(t)
	cookie, user := loginAs(t, srv, store, "mara")

	seed := []struct{ date, kind, amount string }{
		{"2024-01-02", "trade", "100"},
		{"2024-01-01", "trade", "-50"},
		{"2024-01-02", "other", "-10"},
	}
	for _, e := range seed {
		d, _ := core.ParseDate(e.date)
		a, _ := core.ParseAmount(e.amount)
		if _, err := store.CreateTransaction(context.Background(), core.Transaction{
			UserID: user.ID, Date: d, Kind: e.kind, Amount: a,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rr := get(srv, "/dashboard", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"40.00", "50.00%", "100.00", "-50.00", "2024-01-01", "2024-01-02"} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
}

func TestDashboardEmpty(t *testing.T) {
	srv, store := newTestServer(t)
	cookie, _ := loginAs(t, srv, store, "mara")

	rr := get(srv, "/dashboard", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "0.00") || !strings.Contains(body, "No entries yet") {
		t.Fatal("empty dashboard should show zero stats and placeholder rows")
	}
}

func TestAddEntry(t *testing.T) {
	srv, store := newTestServer(t)
	cookie, user := loginAs(t, srv, store, "mara")

	// Invalid amount bounces back with a flash.
	rr := postForm(srv, "/add-entry", url.Values{
		"date": {"2024-02-01"}, "kind": {"trade"}, "amount": {"abc"},
	}, cookie)
	if rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("location=%s", rr.Header().Get("Location"))
	}
	if !strings.Contains(flashOf(rr), "Invalid amount") {
		t.Fatalf("flash=%q", flashOf(rr))
	}

	// Missing kind is rejected.
	rr = postForm(srv, "/add-entry", url.Values{
		"date": {"2024-02-01"}, "amount": {"5"},
	}, cookie)
	if !strings.Contains(flashOf(rr), "Invalid entry") {
		t.Fatalf("flash=%q", flashOf(rr))
	}

	// Valid entry is stored for the logged-in user.
	rr = postForm(srv, "/add-entry", url.Values{
		"date": {"2024-02-01"}, "kind": {"trade"}, "amount": {"12.50"}, "description": {"scalp"},
	}, cookie)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("status=%d location=%s", rr.Code, rr.Header().Get("Location"))
	}
	txs, _ := store.ListTransactionsByUser(context.Background(), user.ID)
	if len(txs) != 1 {
		t.Fatalf("stored %d entries, want 1", len(txs))
	}
	if txs[0].Description != "scalp" || txs[0].Date.String() != "2024-02-01" {
		t.Fatalf("stored entry = %+v", txs[0])
	}

	// An empty date defaults to today.
	rr = postForm(srv, "/add-entry", url.Values{
		"kind": {"deposit"}, "amount": {"1000"},
	}, cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rr.Code)
	}
	txs, _ = store.ListTransactionsByUser(context.Background(), user.ID)
	if len(txs) != 2 {
		t.Fatalf("stored %d entries, want 2", len(txs))
	}
	if txs[1].Date.String() != core.Today().String() {
		t.Fatalf("defaulted date = %s, want today", txs[1].Date)
	}
}

func TestAddEntryInvalidatesReportCache(t *testing.T) {
	srv, store := newTestServer(t)
	cookie, _ := loginAs(t, srv, store, "mara")

	// Prime the cache with an empty report.
	if rr := get(srv, "/dashboard", cookie); rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}

	rr := postForm(srv, "/add-entry", url.Values{
		"date": {"2024-02-01"}, "kind": {"trade"}, "amount": {"25"},
	}, cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rr.Code)
	}

	// The win rate only comes from the rebuilt report, not the entries
	// table.
	rr = get(srv, "/dashboard", cookie)
	if !strings.Contains(rr.Body.String(), "100.00%") {
		t.Fatal("dashboard still serving the stale cached report")
	}
}
