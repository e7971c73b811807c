// Package reports folds an owner's transactions into period reports.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/accounting"
	"github.com/nummix/backoffice/internal/export"
)

// DefaultTrendWindow is the number of months in the monthly trend.
const DefaultTrendWindow = 6

// BreakdownDenominator documents how balance breakdown percentages are scaled.
const BreakdownDenominator = "assets+liabilities+equity"

var hundred = decimal.NewFromInt(100)

// Report is any built report. Every report can be flattened for export.
type Report interface {
	Kind() Kind
	Table() export.Table
}

// Builder turns a transaction snapshot into reports. It holds no state besides
// its configuration, so building twice from the same input yields equal output.
type Builder struct {
	chart       accounting.Chart
	trendWindow int
}

// NewBuilder constructs a Builder. A non-positive trendWindow falls back to
// DefaultTrendWindow.
func NewBuilder(chart accounting.Chart, trendWindow int) Builder {
	if trendWindow <= 0 {
		trendWindow = DefaultTrendWindow
	}
	return Builder{chart: chart, trendWindow: trendWindow}
}

// Build dispatches on kind.
func (b Builder) Build(kind Kind, txs []accounting.Transaction, now time.Time) (Report, error) {
	switch kind {
	case KindDashboard:
		return b.Dashboard(txs)
	case KindTotalAssets:
		return b.TotalAssets(txs)
	case KindBalanceBreakdown:
		return b.BalanceBreakdown(txs)
	case KindGeneralLedger:
		return b.GeneralLedger(txs)
	case KindMonthlyTrend:
		return b.MonthlyTrend(txs, now)
	case KindTrialBalance:
		ledger, err := accounting.BuildLedger(b.chart, txs)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(ledger), nil
	default:
		return nil, ErrUnknownKind
	}
}

// DashboardStats summarises income against expense.
type DashboardStats struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	NetIncome    decimal.Decimal `json:"netIncome"`
}

// Dashboard sums credits on income accounts and debits on expense accounts.
// Every entry must still classify against the chart.
func (b Builder) Dashboard(txs []accounting.Transaction) (DashboardStats, error) {
	if err := accounting.CheckEntries(b.chart, txs); err != nil {
		return DashboardStats{}, err
	}
	income := accounting.SumByAccounts(txs, b.chart.AccountsIn(accounting.CategoryIncome), accounting.SideCredit).Round(2)
	expense := accounting.SumByAccounts(txs, b.chart.AccountsIn(accounting.CategoryExpense), accounting.SideDebit).Round(2)
	return DashboardStats{TotalIncome: income, TotalExpense: expense, NetIncome: income.Sub(expense)}, nil
}

// Kind implements Report.
func (DashboardStats) Kind() Kind { return KindDashboard }

// Table implements Report.
func (d DashboardStats) Table() export.Table {
	return export.Table{
		Title:   "Dashboard",
		Columns: []string{"Metric", "Amount"},
		Rows: [][]any{
			{"Total income", d.TotalIncome},
			{"Total expense", d.TotalExpense},
			{"Net income", d.NetIncome},
		},
	}
}

// AssetBalance is the movement on one asset account.
type AssetBalance struct {
	Account     string          `json:"account"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TotalAssets lists every asset account and the summed balance.
type TotalAssets struct {
	Accounts    []AssetBalance  `json:"accounts"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Total       decimal.Decimal `json:"total"`
}

// TotalAssets folds asset accounts; balance is debit minus credit.
func (b Builder) TotalAssets(txs []accounting.Transaction) (TotalAssets, error) {
	ledger, err := accounting.BuildLedger(b.chart, txs)
	if err != nil {
		return TotalAssets{}, err
	}
	out := TotalAssets{Accounts: []AssetBalance{}, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero, Total: decimal.Zero}
	for _, acc := range ledger.Accounts {
		if acc.Account.Category != accounting.CategoryAsset {
			continue
		}
		row := AssetBalance{
			Account:     acc.Account.Name,
			TotalDebit:  acc.TotalDebit.Round(2),
			TotalCredit: acc.TotalCredit.Round(2),
			Balance:     acc.TotalDebit.Sub(acc.TotalCredit).Round(2),
		}
		out.Accounts = append(out.Accounts, row)
		out.TotalDebit = out.TotalDebit.Add(row.TotalDebit)
		out.TotalCredit = out.TotalCredit.Add(row.TotalCredit)
		out.Total = out.Total.Add(row.Balance)
	}
	return out, nil
}

// Kind implements Report.
func (TotalAssets) Kind() Kind { return KindTotalAssets }

// Table implements Report.
func (t TotalAssets) Table() export.Table {
	table := export.Table{Title: "Total Assets", Columns: []string{"Account", "Debit", "Credit", "Balance"}}
	for _, row := range t.Accounts {
		table.Rows = append(table.Rows, []any{row.Account, row.TotalDebit, row.TotalCredit, row.Balance})
	}
	table.Rows = append(table.Rows, []any{"Total", t.TotalDebit, t.TotalCredit, t.Total})
	return table
}

// BreakdownGroup is one category's share of the grand total.
type BreakdownGroup struct {
	Category   accounting.Category `json:"category"`
	Total      decimal.Decimal     `json:"total"`
	Percentage decimal.Decimal     `json:"percentage"`
}

// BalanceBreakdown expresses assets, liabilities and equity as percentages.
type BalanceBreakdown struct {
	Groups      []BreakdownGroup `json:"groups"`
	GrandTotal  decimal.Decimal  `json:"grandTotal"`
	Denominator string           `json:"denominator"`
}

// BalanceBreakdown sums each group on its normal side and divides by the plain
// sum of the three groups. A zero grand total yields zero percentages.
func (b Builder) BalanceBreakdown(txs []accounting.Transaction) (BalanceBreakdown, error) {
	ledger, err := accounting.BuildLedger(b.chart, txs)
	if err != nil {
		return BalanceBreakdown{}, err
	}
	totals := categoryTotals(ledger)
	groups := []accounting.Category{accounting.CategoryAsset, accounting.CategoryLiability, accounting.CategoryEquity}

	out := BalanceBreakdown{Groups: make([]BreakdownGroup, 0, len(groups)), GrandTotal: decimal.Zero, Denominator: BreakdownDenominator}
	for _, category := range groups {
		out.GrandTotal = out.GrandTotal.Add(totals[category])
	}
	for _, category := range groups {
		out.Groups = append(out.Groups, BreakdownGroup{
			Category:   category,
			Total:      totals[category],
			Percentage: Percentage(totals[category], out.GrandTotal),
		})
	}
	return out, nil
}

// Kind implements Report.
func (BalanceBreakdown) Kind() Kind { return KindBalanceBreakdown }

// Table implements Report.
func (bb BalanceBreakdown) Table() export.Table {
	table := export.Table{Title: "Balance Breakdown", Columns: []string{"Group", "Total", "Percentage"}}
	for _, grp := range bb.Groups {
		table.Rows = append(table.Rows, []any{string(grp.Category), grp.Total, grp.Percentage})
	}
	table.Rows = append(table.Rows, []any{"Total (" + bb.Denominator + ")", bb.GrandTotal, ""})
	return table
}

// CategoryTotals are normal-side balances per category.
type CategoryTotals struct {
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	Equity      decimal.Decimal `json:"equity"`
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
}

// GeneralLedger is the full ledger with category totals.
type GeneralLedger struct {
	Ledger accounting.Ledger `json:"ledger"`
	Totals CategoryTotals    `json:"totals"`
}

// GeneralLedger replays every transaction and totals each category.
func (b Builder) GeneralLedger(txs []accounting.Transaction) (GeneralLedger, error) {
	ledger, err := accounting.BuildLedger(b.chart, txs)
	if err != nil {
		return GeneralLedger{}, err
	}
	totals := categoryTotals(ledger)
	return GeneralLedger{
		Ledger: ledger,
		Totals: CategoryTotals{
			Assets:      totals[accounting.CategoryAsset],
			Liabilities: totals[accounting.CategoryLiability],
			Equity:      totals[accounting.CategoryEquity],
			Income:      totals[accounting.CategoryIncome],
			Expense:     totals[accounting.CategoryExpense],
		},
	}, nil
}

// Kind implements Report.
func (GeneralLedger) Kind() Kind { return KindGeneralLedger }

// Table implements Report.
func (g GeneralLedger) Table() export.Table {
	table := export.Table{
		Title:   "General Ledger",
		Columns: []string{"Account", "Date", "Reference", "Description", "Side", "Amount", "Running balance"},
	}
	for _, acc := range g.Ledger.Accounts {
		for _, line := range acc.Lines {
			table.Rows = append(table.Rows, []any{acc.Account.Name, line.Date, line.Reference, line.Description, string(line.Side), line.Amount, line.Balance})
		}
	}
	return table
}

// MonthlyTrend tracks income and expense accounts over the trailing window.
type MonthlyTrend struct {
	Accounts []string                 `json:"accounts"`
	Months   []accounting.MonthTotals `json:"months"`
}

// MonthlyTrend breaks income and expense accounts down by month.
func (b Builder) MonthlyTrend(txs []accounting.Transaction, now time.Time) (MonthlyTrend, error) {
	names := append(b.chart.AccountsIn(accounting.CategoryIncome), b.chart.AccountsIn(accounting.CategoryExpense)...)
	months, err := accounting.MonthlyBreakdown(b.chart, txs, names, b.trendWindow, now)
	if err != nil {
		return MonthlyTrend{}, err
	}
	return MonthlyTrend{Accounts: names, Months: months}, nil
}

// Kind implements Report.
func (MonthlyTrend) Kind() Kind { return KindMonthlyTrend }

// Table implements Report.
func (m MonthlyTrend) Table() export.Table {
	table := export.Table{Title: "Monthly Trend", Columns: append([]string{"Month"}, m.Accounts...)}
	for _, month := range m.Months {
		row := make([]any, 0, len(m.Accounts)+1)
		row = append(row, month.Month)
		for _, name := range m.Accounts {
			row = append(row, month.Totals[name])
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// Percentage returns part/total*100 rounded to 2 places, or zero when total is zero.
func Percentage(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred).Round(2)
}

func categoryTotals(ledger accounting.Ledger) map[accounting.Category]decimal.Decimal {
	totals := make(map[accounting.Category]decimal.Decimal, len(accounting.Categories))
	for _, category := range accounting.Categories {
		totals[category] = decimal.Zero
	}
	for _, acc := range ledger.Accounts {
		totals[acc.Account.Category] = totals[acc.Account.Category].Add(acc.NormalBalance())
	}
	for category, total := range totals {
		totals[category] = total.Round(2)
	}
	return totals
}
