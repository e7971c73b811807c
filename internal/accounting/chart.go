package accounting

import (
	"fmt"
	"strings"
)

// Account classifies a chart of accounts entry.
type Account struct {
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	NormalSide Side     `json:"normalSide"`
}

// Chart is an immutable lookup from account name to classification.
type Chart struct {
	accounts map[string]Account
	order    []string
}

// NewChart builds a chart, rejecting duplicates and malformed classifications.
func NewChart(accounts ...Account) (Chart, error) {
	chart := Chart{accounts: make(map[string]Account, len(accounts))}
	for _, acc := range accounts {
		name := strings.TrimSpace(acc.Name)
		if name == "" {
			return Chart{}, fmt.Errorf("accounting: account name required")
		}
		if !acc.Category.Valid() {
			return Chart{}, fmt.Errorf("accounting: account %q has invalid category %q", name, acc.Category)
		}
		if !acc.NormalSide.Valid() {
			return Chart{}, fmt.Errorf("accounting: account %q has invalid normal side %q", name, acc.NormalSide)
		}
		if _, dup := chart.accounts[name]; dup {
			return Chart{}, fmt.Errorf("accounting: duplicate account %q", name)
		}
		acc.Name = name
		chart.accounts[name] = acc
		chart.order = append(chart.order, name)
	}
	return chart, nil
}

// DefaultChart returns the built-in chart of accounts.
func DefaultChart() Chart {
	chart, err := NewChart(
		Account{Name: "Cash", Category: CategoryAsset, NormalSide: SideDebit},
		Account{Name: "Bank", Category: CategoryAsset, NormalSide: SideDebit},
		Account{Name: "Accounts Payable", Category: CategoryLiability, NormalSide: SideCredit},
		Account{Name: "Owner Equity", Category: CategoryEquity, NormalSide: SideCredit},
		Account{Name: "Sales", Category: CategoryIncome, NormalSide: SideCredit},
		Account{Name: "Expense", Category: CategoryExpense, NormalSide: SideDebit},
	)
	if err != nil {
		panic(err)
	}
	return chart
}

// Classify resolves an account name.
func (c Chart) Classify(name string) (Account, error) {
	acc, ok := c.accounts[name]
	if !ok {
		return Account{}, fmt.Errorf("%w: %q", ErrUnknownAccount, name)
	}
	return acc, nil
}

// Accounts returns every account in declaration order.
func (c Chart) Accounts() []Account {
	out := make([]Account, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.accounts[name])
	}
	return out
}

// AccountsIn returns the names of accounts in category, in declaration order.
func (c Chart) AccountsIn(category Category) []string {
	var out []string
	for _, name := range c.order {
		if c.accounts[name].Category == category {
			out = append(out, name)
		}
	}
	return out
}
