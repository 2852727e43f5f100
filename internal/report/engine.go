// Package report derives balances, totals and monthly series from a ledger.
//
// Every function here is a pure function of its inputs; the only ambient
// input is "now", which comes from the Engine's clock.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type (
	Totals struct {
		Income   decimal.Decimal
		Expenses decimal.Decimal
	}

	CategoryTotal struct {
		Category string
		Amount   decimal.Decimal
	}

	TrendPoint struct {
		Month    core.MonthKey
		Income   decimal.Decimal
		Expenses decimal.Decimal
	}

	SavingsPoint struct {
		Month   core.MonthKey
		Balance decimal.Decimal
	}

	// Averages holds per-month means. Months is the divisor actually used
	// and is never below one.
	Averages struct {
		Income   decimal.Decimal
		Expenses decimal.Decimal
		Months   int
	}

	// Report bundles every derived view for one date range.
	Report struct {
		Range        core.DateRange
		GeneratedAt  time.Time
		Currency     string
		Transactions []core.Transaction
		Balance      decimal.Decimal
		Totals       Totals
		ByCategory   []CategoryTotal
		Trend        []TrendPoint
		Savings      []SavingsPoint
		Averages     Averages
	}
)

// Net is income minus expenses.
func (t Totals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expenses)
}

// Engine evaluates date windows against its clock and buckets months in
// its location.
type Engine struct {
	clock core.Clock
	loc   *time.Location
}

// NewEngine returns an engine. A nil location buckets months in UTC.
func NewEngine(clock core.Clock, loc *time.Location) *Engine {
	if clock == nil {
		clock = core.SystemClock{Location: loc}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{clock: clock, loc: loc}
}

// Now returns the engine's current time in its location.
func (e *Engine) Now() time.Time {
	return e.clock.Now().In(e.loc)
}

// Filter keeps transactions dated at or after now minus the range's days,
// preserving input order. RangeAll returns the whole sequence.
func (e *Engine) Filter(txs []core.Transaction, r core.DateRange) []core.Transaction {
	now := e.Now()
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if r.Contains(tx.Date, now) {
			out = append(out, tx)
		}
	}
	return out
}

// CurrentBalance is the initial balance (zero when unset) plus income minus
// expenses over txs.
func CurrentBalance(initial *decimal.Decimal, txs []core.Transaction) decimal.Decimal {
	balance := decimal.Zero
	if initial != nil {
		balance = *initial
	}
	for _, tx := range txs {
		balance = balance.Add(tx.Signed())
	}
	return balance
}

// ComputeTotals sums income and expenses separately.
func ComputeTotals(txs []core.Transaction) Totals {
	t := Totals{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expenses = t.Expenses.Add(tx.Amount)
		}
	}
	return t
}

// ExpensesByCategory groups expenses by exact category string. Groups
// appear in order of first occurrence.
func ExpensesByCategory(txs []core.Transaction) []CategoryTotal {
	index := make(map[string]int)
	var out []CategoryTotal
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategoryTotal{Category: tx.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	return out
}

// Trend sums income and expenses per calendar month, oldest month first.
func (e *Engine) Trend(txs []core.Transaction) []TrendPoint {
	buckets := make(map[core.MonthKey]*TrendPoint)
	for _, tx := range txs {
		key := e.monthOf(tx.Date)
		p, ok := buckets[key]
		if !ok {
			p = &TrendPoint{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
			buckets[key] = p
		}
		switch tx.Type {
		case core.Income:
			p.Income = p.Income.Add(tx.Amount)
		case core.Expense:
			p.Expenses = p.Expenses.Add(tx.Amount)
		}
	}
	out := make([]TrendPoint, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// Savings replays txs in timestamp order starting from the initial balance
// and records the running balance at the end of each month.
func (e *Engine) Savings(initial *decimal.Decimal, txs []core.Transaction) []SavingsPoint {
	ordered := make([]core.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	running := decimal.Zero
	if initial != nil {
		running = *initial
	}
	last := make(map[core.MonthKey]decimal.Decimal)
	for _, tx := range ordered {
		running = running.Add(tx.Signed())
		last[e.monthOf(tx.Date)] = running
	}

	out := make([]SavingsPoint, 0, len(last))
	for k, v := range last {
		out = append(out, SavingsPoint{Month: k, Balance: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// MonthlyAverages divides the totals by the number of distinct months,
// using one when txs is empty.
func (e *Engine) MonthlyAverages(txs []core.Transaction) Averages {
	months := make(map[core.MonthKey]struct{})
	for _, tx := range txs {
		months[e.monthOf(tx.Date)] = struct{}{}
	}
	n := len(months)
	if n < 1 {
		n = 1
	}
	totals := ComputeTotals(txs)
	div := decimal.NewFromInt(int64(n))
	return Averages{
		Income:   totals.Income.Div(div),
		Expenses: totals.Expenses.Div(div),
		Months:   n,
	}
}

// Recent returns txs newest first. Equal timestamps keep insertion order.
func Recent(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Build computes every view of data for range r.
func (e *Engine) Build(data core.FinanceData, r core.DateRange) Report {
	filtered := e.Filter(data.Transactions, r)
	return Report{
		Range:        r,
		GeneratedAt:  e.Now(),
		Currency:     data.Currency,
		Transactions: filtered,
		Balance:      CurrentBalance(data.InitialBalance, filtered),
		Totals:       ComputeTotals(filtered),
		ByCategory:   ExpensesByCategory(filtered),
		Trend:        e.Trend(filtered),
		Savings:      e.Savings(data.InitialBalance, filtered),
		Averages:     e.MonthlyAverages(filtered),
	}
}

func (e *Engine) monthOf(t time.Time) core.MonthKey {
	return core.MonthOf(t.In(e.loc))
}
