package reports

import (
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/accounting"
	"github.com/nummix/backoffice/internal/export"
)

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	Account string          `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Closing decimal.Decimal `json:"closing"`
}

// TrialBalanceGroup aggregates accounts of one category.
type TrialBalanceGroup struct {
	Category accounting.Category   `json:"category"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Debit    decimal.Decimal       `json:"debit"`
	Credit   decimal.Decimal       `json:"credit"`
	Closing  decimal.Decimal       `json:"closing"`
}

// TrialBalance lists debit and credit totals per account, grouped by category.
type TrialBalance struct {
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"totalDebit"`
	TotalCredit decimal.Decimal     `json:"totalCredit"`
	Balanced    bool                `json:"balanced"`
}

// BuildTrialBalance converts a ledger into grouped trial balance data.
// Closing is debit minus credit; groups without accounts are omitted.
func BuildTrialBalance(ledger accounting.Ledger) TrialBalance {
	groups := make(map[accounting.Category]*TrialBalanceGroup)
	for _, acc := range ledger.Accounts {
		grp, ok := groups[acc.Account.Category]
		if !ok {
			grp = &TrialBalanceGroup{Category: acc.Account.Category, Debit: decimal.Zero, Credit: decimal.Zero, Closing: decimal.Zero}
			groups[acc.Account.Category] = grp
		}
		row := TrialBalanceAccount{
			Account: acc.Account.Name,
			Debit:   acc.TotalDebit.Round(2),
			Credit:  acc.TotalCredit.Round(2),
			Closing: acc.Balance.Round(2),
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.Closing = grp.Closing.Add(row.Closing)
	}

	result := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, category := range accounting.Categories {
		grp, ok := groups[category]
		if !ok {
			continue
		}
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	result.Balanced = result.TotalDebit.Equal(result.TotalCredit)
	return result
}

// Kind implements Report.
func (TrialBalance) Kind() Kind { return KindTrialBalance }

// Table implements Report.
func (tb TrialBalance) Table() export.Table {
	table := export.Table{Title: "Trial Balance", Columns: []string{"Category", "Account", "Debit", "Credit", "Closing"}}
	for _, grp := range tb.Groups {
		for _, acc := range grp.Accounts {
			table.Rows = append(table.Rows, []any{string(grp.Category), acc.Account, acc.Debit, acc.Credit, acc.Closing})
		}
	}
	table.Rows = append(table.Rows, []any{"Total", "", tb.TotalDebit, tb.TotalCredit, tb.TotalDebit.Sub(tb.TotalCredit)})
	return table
}
