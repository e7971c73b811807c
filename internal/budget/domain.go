// Package budget tracks planned against actual spend per department and year.
package budget

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/shared"
)

// Status flags whether a category stayed within plan.
type Status string

const (
	StatusWithinBudget Status = "within_budget"
	StatusOverBudget   Status = "over_budget"
)

// MonthsPerYear is the number of monthly budgets in every Budget.
const MonthsPerYear = 12

var (
	ErrDepartmentRequired = shared.NewValidationError("budget: department required")
	ErrInvalidYear        = shared.NewValidationError("budget: year out of range")
	ErrInvalidMonth       = shared.NewValidationError("budget: month must be between 1 and 12 and appear once")
	ErrCategoryName       = shared.NewValidationError("budget: category name required")
	ErrInvalidAmount      = shared.NewValidationError("budget: amounts must be non-negative with at most 2 decimals")
	ErrBudgetNotFound     = shared.NewNotFoundError("budget: not found")
	ErrVersionConflict    = shared.NewConflictError("budget: version conflict")
	ErrDuplicateBudget    = shared.NewConflictError("budget: department already has a budget for that year")
)

var hundred = decimal.NewFromInt(100)

// Category is one budget line. Difference, UsageRate and Status are derived.
type Category struct {
	Name          string          `json:"name"`
	PlannedAmount decimal.Decimal `json:"plannedAmount"`
	ActualAmount  decimal.Decimal `json:"actualAmount"`
	Difference    decimal.Decimal `json:"difference"`
	UsageRate     decimal.Decimal `json:"usageRate"`
	Status        Status          `json:"status"`
}

// MonthlyBudget groups categories for one calendar month.
type MonthlyBudget struct {
	Month      int        `json:"month"`
	Categories []Category `json:"categories"`
}

// Budget is a department's plan for one year.
type Budget struct {
	ID         uuid.UUID       `json:"id"`
	Owner      uuid.UUID       `json:"-"`
	Department string          `json:"department"`
	Year       int             `json:"year"`
	Months     []MonthlyBudget `json:"months"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Filter narrows budget queries. Zero values match everything.
type Filter struct {
	Department string
	Year       int
}

// SaveInput carries a create or full replacement of a budget.
type SaveInput struct {
	Owner      uuid.UUID
	Department string
	Year       int
	Months     []MonthlyBudget
}

// Validate checks the input shape before derivation.
func (in SaveInput) Validate() error {
	if strings.TrimSpace(in.Department) == "" {
		return ErrDepartmentRequired
	}
	if in.Year < 1900 || in.Year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, in.Year)
	}
	seen := make(map[int]struct{}, len(in.Months))
	for _, m := range in.Months {
		if m.Month < 1 || m.Month > MonthsPerYear {
			return fmt.Errorf("%w: %d", ErrInvalidMonth, m.Month)
		}
		if _, dup := seen[m.Month]; dup {
			return fmt.Errorf("%w: %d", ErrInvalidMonth, m.Month)
		}
		seen[m.Month] = struct{}{}
		for idx, c := range m.Categories {
			if strings.TrimSpace(c.Name) == "" {
				return fmt.Errorf("month %d category %d: %w", m.Month, idx, ErrCategoryName)
			}
			if !validAmount(c.PlannedAmount) || !validAmount(c.ActualAmount) {
				return fmt.Errorf("month %d category %q: %w", m.Month, c.Name, ErrInvalidAmount)
			}
		}
	}
	return nil
}

func validAmount(a decimal.Decimal) bool {
	return !a.IsNegative() && a.Equal(a.Round(2))
}

// NormalizeMonths returns all twelve months in order, keeping supplied
// categories and filling absent months with none.
func NormalizeMonths(months []MonthlyBudget) []MonthlyBudget {
	out := make([]MonthlyBudget, MonthsPerYear)
	for i := range out {
		out[i] = MonthlyBudget{Month: i + 1, Categories: []Category{}}
	}
	for _, m := range months {
		if m.Month < 1 || m.Month > MonthsPerYear {
			continue
		}
		out[m.Month-1].Categories = append([]Category{}, m.Categories...)
	}
	return out
}

// DeriveCategory recomputes the derived fields of c from its amounts.
func DeriveCategory(c Category) Category {
	c.Name = strings.TrimSpace(c.Name)
	c.Difference = c.PlannedAmount.Sub(c.ActualAmount)
	c.UsageRate = UsageRate(c.ActualAmount, c.PlannedAmount)
	if c.ActualAmount.GreaterThan(c.PlannedAmount) {
		c.Status = StatusOverBudget
	} else {
		c.Status = StatusWithinBudget
	}
	return c
}

// DeriveFields recomputes every derived field and stamps UpdatedAt. The write
// path calls it before each persist.
func DeriveFields(b Budget, now time.Time) Budget {
	b.Department = strings.TrimSpace(b.Department)
	b.Months = NormalizeMonths(b.Months)
	for i := range b.Months {
		for j := range b.Months[i].Categories {
			b.Months[i].Categories[j] = DeriveCategory(b.Months[i].Categories[j])
		}
	}
	now = now.UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	return b
}

// UsageRate is actual/planned*100 rounded to 2 places; zero when nothing was planned.
func UsageRate(actual, planned decimal.Decimal) decimal.Decimal {
	if planned.IsZero() {
		return decimal.Zero
	}
	return actual.Div(planned).Mul(hundred).Round(2)
}

// FormatRate renders a usage rate with a percent suffix. Zero renders as "0%".
func FormatRate(rate decimal.Decimal) string {
	if rate.IsZero() {
		return "0%"
	}
	return rate.StringFixed(2) + "%"
}
