package http

import (
	"encoding/json"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

// Chart.js palette, cycled by index.
var chartColors = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF",
	"#FF9F40", "#FF6384", "#C9CBCF", "#7BC225", "#E7E9ED",
}

const txDateLayout = "Jan 2, 2006"

type (
	option struct {
		Value    string
		Label    string
		Selected bool
	}

	categoryRow struct {
		Name   string
		Amount string
		Color  string
		Width  int
	}

	txRow struct {
		ID       string
		Date     string
		Type     string
		Category string
		Amount   string
	}

	summaryView struct {
		Range             string
		RangeLabel        string
		Currency          string
		InitialBalanceSet bool
		Balance           string
		BalanceNegative   bool
		Income            string
		Expenses          string
		Net               string
		AvgIncome         string
		AvgExpenses       string
		Months            int
		Categories        []categoryRow
		ChartJSON         template.JS
	}

	transactionsView struct {
		Range string
		Rows  []txRow
	}

	indexView struct {
		Range            string
		Ranges           []option
		Currencies       []option
		ExpenseSuggested []string
		IncomeSuggested  []string
		Summary          summaryView
		Transactions     transactionsView
	}
)

// chartData is consumed by static/app.js.
type chartData struct {
	Currency   string       `json:"currency"`
	Trend      trendSeries  `json:"trend"`
	Categories pieSeries    `json:"categories"`
	Savings    lineSeries   `json:"savings"`
	Averages   averagesData `json:"averages"`
}

type trendSeries struct {
	Labels   []string  `json:"labels"`
	Income   []float64 `json:"income"`
	Expenses []float64 `json:"expenses"`
}

type pieSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Colors []string  `json:"colors"`
}

type lineSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type averagesData struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

func newSummaryView(rep report.Report, initialSet bool) summaryView {
	cur := rep.Currency
	v := summaryView{
		Range:             string(rep.Range),
		RangeLabel:        rep.Range.Label(),
		Currency:          cur,
		InitialBalanceSet: initialSet,
		Balance:           core.FormatAmount(rep.Balance, cur),
		BalanceNegative:   rep.Balance.IsNegative(),
		Income:            core.FormatAmount(rep.Totals.Income, cur),
		Expenses:          core.FormatAmount(rep.Totals.Expenses, cur),
		Net:               core.FormatAmount(rep.Totals.Net(), cur),
		AvgIncome:         core.FormatAmount(rep.Averages.Income, cur),
		AvgExpenses:       core.FormatAmount(rep.Averages.Expenses, cur),
		Months:            rep.Averages.Months,
	}

	top := decimal.Zero
	for _, c := range rep.ByCategory {
		if c.Amount.GreaterThan(top) {
			top = c.Amount
		}
	}
	for i, c := range rep.ByCategory {
		v.Categories = append(v.Categories, categoryRow{
			Name:   c.Category,
			Amount: core.FormatAmount(c.Amount, cur),
			Color:  chartColors[i%len(chartColors)],
			Width:  barWidth(c.Amount, top),
		})
	}

	raw, err := json.Marshal(newChartData(rep))
	if err == nil {
		v.ChartJSON = template.JS(raw)
	}
	return v
}

// barWidth scales amount to a percentage of top, keeping tiny values visible.
func barWidth(amount, top decimal.Decimal) int {
	if !top.IsPositive() || !amount.IsPositive() {
		return 0
	}
	w := int(amount.Mul(decimal.NewFromInt(100)).Div(top).Round(0).IntPart())
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

func newChartData(rep report.Report) chartData {
	cd := chartData{
		Currency: rep.Currency,
		Trend:    trendSeries{Labels: []string{}, Income: []float64{}, Expenses: []float64{}},
		Categories: pieSeries{
			Labels: []string{}, Values: []float64{}, Colors: []string{},
		},
		Savings: lineSeries{Labels: []string{}, Values: []float64{}},
		Averages: averagesData{
			Income:   rep.Averages.Income.InexactFloat64(),
			Expenses: rep.Averages.Expenses.InexactFloat64(),
		},
	}
	for _, p := range rep.Trend {
		cd.Trend.Labels = append(cd.Trend.Labels, p.Month.Label())
		cd.Trend.Income = append(cd.Trend.Income, p.Income.InexactFloat64())
		cd.Trend.Expenses = append(cd.Trend.Expenses, p.Expenses.InexactFloat64())
	}
	for i, c := range rep.ByCategory {
		cd.Categories.Labels = append(cd.Categories.Labels, c.Category)
		cd.Categories.Values = append(cd.Categories.Values, c.Amount.InexactFloat64())
		cd.Categories.Colors = append(cd.Categories.Colors, chartColors[i%len(chartColors)])
	}
	for _, p := range rep.Savings {
		cd.Savings.Labels = append(cd.Savings.Labels, p.Month.Label())
		cd.Savings.Values = append(cd.Savings.Values, p.Balance.InexactFloat64())
	}
	return cd
}

func newTransactionsView(rep report.Report, loc *time.Location) transactionsView {
	v := transactionsView{Range: string(rep.Range)}
	for _, tx := range report.Recent(rep.Transactions) {
		v.Rows = append(v.Rows, txRow{
			ID:       tx.ID,
			Date:     tx.Date.In(loc).Format(txDateLayout),
			Type:     tx.Type.String(),
			Category: tx.Category,
			Amount:   core.FormatAmount(tx.Amount, rep.Currency),
		})
	}
	return v
}

func rangeOptions(selected core.DateRange) []option {
	var out []option
	for _, r := range core.DateRanges() {
		out = append(out, option{Value: string(r.Value), Label: r.Label, Selected: r.Value == selected})
	}
	return out
}

func currencyOptions(selected string) []option {
	var out []option
	for _, c := range core.Currencies() {
		out = append(out, option{Value: c.Code, Label: c.Label(), Selected: c.Code == selected})
	}
	return out
}
