package budget

import (
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/export"
)

// UsageLine is one category in one month of one budget.
type UsageLine struct {
	Department string          `json:"department"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Category   string          `json:"category"`
	Planned    decimal.Decimal `json:"plannedAmount"`
	Actual     decimal.Decimal `json:"actualAmount"`
	Difference decimal.Decimal `json:"difference"`
	UsageRate  string          `json:"usageRate"`
	Status     Status          `json:"status"`
}

// UsageReport compares planned and actual spend across budgets.
type UsageReport struct {
	Budgets         int             `json:"budgets"`
	Lines           []UsageLine     `json:"lines"`
	TotalPlanned    decimal.Decimal `json:"totalPlanned"`
	TotalActual     decimal.Decimal `json:"totalActual"`
	TotalDifference decimal.Decimal `json:"totalDifference"`
	UsageRate       string          `json:"usageRate"`
}

// BuildUsageReport flattens budgets into month and category lines. Derived
// values are recomputed here, so stale stored fields never leak into the report.
func BuildUsageReport(budgets []Budget) UsageReport {
	report := UsageReport{
		Budgets:         len(budgets),
		Lines:           []UsageLine{},
		TotalPlanned:    decimal.Zero,
		TotalActual:     decimal.Zero,
		TotalDifference: decimal.Zero,
	}
	for _, b := range budgets {
		for _, month := range NormalizeMonths(b.Months) {
			for _, raw := range month.Categories {
				c := DeriveCategory(raw)
				report.Lines = append(report.Lines, UsageLine{
					Department: b.Department,
					Year:       b.Year,
					Month:      month.Month,
					Category:   c.Name,
					Planned:    c.PlannedAmount,
					Actual:     c.ActualAmount,
					Difference: c.Difference,
					UsageRate:  FormatRate(c.UsageRate),
					Status:     c.Status,
				})
				report.TotalPlanned = report.TotalPlanned.Add(c.PlannedAmount)
				report.TotalActual = report.TotalActual.Add(c.ActualAmount)
			}
		}
	}
	report.TotalDifference = report.TotalPlanned.Sub(report.TotalActual)
	report.UsageRate = FormatRate(UsageRate(report.TotalActual, report.TotalPlanned))
	return report
}

// Table flattens the report for export.
func (r UsageReport) Table() export.Table {
	table := export.Table{
		Title:   "Budget Usage",
		Columns: []string{"Department", "Year", "Month", "Category", "Planned", "Actual", "Difference", "Usage", "Status"},
	}
	for _, line := range r.Lines {
		table.Rows = append(table.Rows, []any{line.Department, line.Year, line.Month, line.Category, line.Planned, line.Actual, line.Difference, line.UsageRate, string(line.Status)})
	}
	table.Rows = append(table.Rows, []any{"Total", "", "", "", r.TotalPlanned, r.TotalActual, r.TotalDifference, r.UsageRate, ""})
	return table
}
