package http

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"tradejournal/internal/core"
	"tradejournal/internal/report"
)

// entryKinds are the choices offered by the add-entry form. "trade" is the
// only kind the win/loss statistics look at; the rest only move the balance.
var entryKinds = []string{core.KindTrade, "deposit", "withdrawal", "fee", "other"}

type seriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// handleDashboard renders the dashboard: entries, daily P&L, cumulative
// balance, trade statistics and the chart data blocks.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	user := userFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	entries, err := s.transactions.ListTransactionsByUser(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions error", "error", err, "user_id", user.ID)
		http.Error(w, "could not load journal", http.StatusInternalServerError)
		return
	}

	rep := s.getReport(r.Context(), user.ID, entries)

	dailyJSON, cumulativeJSON, err := chartData(rep)
	if err != nil {
		slog.ErrorContext(r.Context(), "Chart data error", "error", err, "user_id", user.ID)
		http.Error(w, "could not render dashboard", http.StatusInternalServerError)
		return
	}

	type entryRow struct {
		Date        string
		Kind        string
		Amount      string
		Negative    bool
		Description string
	}
	type pointRow struct {
		Date     string
		Value    string
		Negative bool
	}

	data := struct {
		Username       string
		Flash          string
		Today          string
		Kinds          []string
		Entries        []entryRow
		Daily          []pointRow
		Cumulative     []pointRow
		TotalTrades    int
		Wins           int
		Losses         int
		WinRate        string
		AvgWin         string
		AvgLoss        string
		AccountTotal   string
		DailyJSON      template.JS
		CumulativeJSON template.JS
	}{
		Username:       user.Username,
		Flash:          s.popFlash(w, r),
		Today:          core.Today().String(),
		Kinds:          entryKinds,
		TotalTrades:    rep.TotalTrades,
		Wins:           rep.Wins,
		Losses:         rep.Losses,
		WinRate:        rep.WinRate.StringFixed(2),
		AvgWin:         rep.AvgWin.StringFixed(2),
		AvgLoss:        rep.AvgLoss.StringFixed(2),
		AccountTotal:   rep.AccountTotal.StringFixed(2),
		DailyJSON:      template.JS(dailyJSON),
		CumulativeJSON: template.JS(cumulativeJSON),
	}

	for _, e := range entries {
		data.Entries = append(data.Entries, entryRow{
			Date:        e.Date.String(),
			Kind:        e.Kind,
			Amount:      e.Amount.StringFixed(2),
			Negative:    e.Amount.IsNegative(),
			Description: e.Description,
		})
	}
	for _, p := range rep.Daily {
		data.Daily = append(data.Daily, pointRow{Date: p.Date, Value: p.Amount.StringFixed(2), Negative: p.Amount.IsNegative()})
	}
	for _, p := range rep.Cumulative {
		data.Cumulative = append(data.Cumulative, pointRow{Date: p.Date, Value: p.Balance.StringFixed(2), Negative: p.Balance.IsNegative()})
	}

	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Dashboard template execution failed", "error", err, "template", "dashboard.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// getReport returns the cached report for a user or builds and caches it
// from the supplied snapshot.
func (s *Server) getReport(ctx context.Context, userID int64, entries []core.Transaction) report.Report {
	if rep, found := s.reportCache.Get(userID); found {
		slog.DebugContext(ctx, "Report cache hit", "user_id", userID)
		return rep
	}
	rep := report.Build(entries)
	s.reportCache.Set(userID, rep)
	slog.DebugContext(ctx, "Report cached", "user_id", userID, "entries", len(entries))
	return rep
}

// chartData serializes the daily and cumulative series for the chart script.
func chartData(rep report.Report) (string, string, error) {
	daily := make([]seriesPoint, 0, len(rep.Daily))
	for _, p := range rep.Daily {
		daily = append(daily, seriesPoint{Date: p.Date, Value: p.Amount.InexactFloat64()})
	}
	cumulative := make([]seriesPoint, 0, len(rep.Cumulative))
	for _, p := range rep.Cumulative {
		cumulative = append(cumulative, seriesPoint{Date: p.Date, Value: p.Balance.InexactFloat64()})
	}

	dj, err := json.Marshal(daily)
	if err != nil {
		return "", "", fmt.Errorf("marshal daily series: %w", err)
	}
	cj, err := json.Marshal(cumulative)
	if err != nil {
		return "", "", fmt.Errorf("marshal cumulative series: %w", err)
	}
	return string(dj), string(cj), nil
}

// handleAddEntry validates the form and appends a journal entry. The date
// defaults to today when left empty, matching the form's prefill.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	user := userFrom(r.Context())

	date := core.Today()
	if v := r.Form.Get("date"); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			s.setFlash(w, "Invalid date.")
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		date = parsed
	}

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		s.setFlash(w, "Invalid amount.")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	entry := core.Transaction{
		UserID:      user.ID,
		Date:        date,
		Kind:        sanitizeInput(r.Form.Get("kind")),
		Amount:      amount,
		Description: sanitizeInput(r.Form.Get("description")),
	}
	if err := entry.Validate(); err != nil {
		s.setFlash(w, "Invalid entry: "+err.Error())
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	saved, err := s.transactions.CreateTransaction(r.Context(), entry)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create transaction error", "error", err, "user_id", user.ID)
		http.Error(w, "could not save entry", http.StatusInternalServerError)
		return
	}

	// The cached report is stale as of this write.
	s.reportCache.Invalidate(user.ID)

	slog.InfoContext(r.Context(), "Entry added",
		"entry_id", saved.ID,
		"user_id", user.ID,
		"date", saved.Date.String(),
		"kind", saved.Kind)
	s.setFlash(w, "Entry added.")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
