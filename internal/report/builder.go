// Package report turns a user's transaction list into dashboard-ready
// aggregates: daily P&L, cumulative balance and trade statistics.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradejournal/internal/core"
)

type (
	// DailyPoint is the net amount across all transaction kinds for one
	// calendar date.
	DailyPoint struct {
		Date   string
		Amount decimal.Decimal
	}

	// BalancePoint is the running account balance after applying the
	// daily net amount for its date.
	BalancePoint struct {
		Date    string
		Balance decimal.Decimal
	}

	// Report holds every aggregate the dashboard renders. WinRate, AvgWin,
	// AvgLoss and AccountTotal are rounded to 2 decimals; Daily and
	// Cumulative carry full precision.
	Report struct {
		Daily      []DailyPoint
		Cumulative []BalancePoint

		TotalTrades int
		Wins        int
		Losses      int

		WinRate      decimal.Decimal
		AvgWin       decimal.Decimal
		AvgLoss      decimal.Decimal
		AccountTotal decimal.Decimal
	}
)

var hundred = decimal.NewFromInt(100)

// Build computes all dashboard aggregates for one user's transactions.
//
// The input does not have to be sorted and is not mutated. Build never
// fails: the empty slice yields empty series and zero statistics, and a
// denominator of zero (no trades, no wins, no losses) yields the defined
// zero value rather than an error.
func Build(txs []core.Transaction) Report {
	var r Report

	// Group by exact date string first; the insertion order of the map is
	// irrelevant because the keys are sorted afterwards.
	byDate := make(map[string]decimal.Decimal, len(txs))
	for _, t := range txs {
		d := t.Date.String()
		byDate[d] = byDate[d].Add(t.Amount)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	// Lexical sort of ISO-8601 dates equals chronological sort.
	sort.Strings(dates)

	running := decimal.Zero
	for _, d := range dates {
		amount := byDate[d]
		running = running.Add(amount)
		r.Daily = append(r.Daily, DailyPoint{Date: d, Amount: amount})
		r.Cumulative = append(r.Cumulative, BalancePoint{Date: d, Balance: running})
	}
	// The final running balance is also the account total, independent of
	// transaction kind.
	r.AccountTotal = running.Round(2)

	// Win/loss statistics consider trade-kind transactions only. An amount
	// of exactly zero is neither a win nor a loss but still counts toward
	// the trade total.
	winSum, lossSum := decimal.Zero, decimal.Zero
	for _, t := range txs {
		if !t.IsTrade() {
			continue
		}
		r.TotalTrades++
		switch {
		case t.Amount.IsPositive():
			r.Wins++
			winSum = winSum.Add(t.Amount)
		case t.Amount.IsNegative():
			r.Losses++
			lossSum = lossSum.Add(t.Amount)
		}
	}

	if r.TotalTrades > 0 {
		r.WinRate = hundred.Mul(decimal.NewFromInt(int64(r.Wins))).
			Div(decimal.NewFromInt(int64(r.TotalTrades))).Round(2)
	}
	if r.Wins > 0 {
		r.AvgWin = winSum.Div(decimal.NewFromInt(int64(r.Wins))).Round(2)
	}
	if r.Losses > 0 {
		r.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(r.Losses))).Round(2)
	}

	return r
}
