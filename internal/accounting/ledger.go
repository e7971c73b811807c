package accounting

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerLine is one posted entry with the account balance after it.
type LedgerLine struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	Date          time.Time       `json:"date"`
	Reference     string          `json:"reference"`
	Description   string          `json:"description,omitempty"`
	Side          Side            `json:"side"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"runningBalance"`
}

// AccountLedger is the chronological history of a single account.
type AccountLedger struct {
	Account     Account         `json:"account"`
	Lines       []LedgerLine    `json:"lines"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Balance     decimal.Decimal `json:"balance"`
}

// NormalBalance is the balance expressed on the account's normal side.
func (l AccountLedger) NormalBalance() decimal.Decimal {
	return l.Account.NormalBalance(l.TotalDebit, l.TotalCredit)
}

// NormalBalance converts debit and credit totals into a balance that is
// positive when it sits on the account's normal side.
func (a Account) NormalBalance(debit, credit decimal.Decimal) decimal.Decimal {
	if a.NormalSide == SideCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// Ledger holds one AccountLedger per chart account, in chart order.
type Ledger struct {
	Accounts []AccountLedger `json:"accounts"`
}

// Account looks up the ledger of a named account.
func (l Ledger) Account(name string) (AccountLedger, bool) {
	for _, acc := range l.Accounts {
		if acc.Account.Name == name {
			return acc, true
		}
	}
	return AccountLedger{}, false
}

// SortByDate orders transactions by effective date, keeping retrieval order for ties.
func SortByDate(txs []Transaction) []Transaction {
	sorted := append([]Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// BuildLedger replays transactions in date order. A debit always raises the
// running balance and a credit always lowers it, whatever the account category.
func BuildLedger(chart Chart, txs []Transaction) (Ledger, error) {
	accounts := chart.Accounts()
	index := make(map[string]int, len(accounts))
	ledger := Ledger{Accounts: make([]AccountLedger, len(accounts))}
	for i, acc := range accounts {
		index[acc.Name] = i
		ledger.Accounts[i] = AccountLedger{
			Account:     acc,
			Lines:       []LedgerLine{},
			TotalDebit:  decimal.Zero,
			TotalCredit: decimal.Zero,
			Balance:     decimal.Zero,
		}
	}

	for _, tx := range SortByDate(txs) {
		for idx, entry := range tx.Entries {
			pos, ok := index[entry.Account]
			if !ok {
				return Ledger{}, fmt.Errorf("transaction %s entry %d: %w: %q", tx.ID, idx, ErrUnknownAccount, entry.Account)
			}
			acc := &ledger.Accounts[pos]
			switch entry.Side {
			case SideDebit:
				acc.TotalDebit = acc.TotalDebit.Add(entry.Amount)
				acc.Balance = acc.Balance.Add(entry.Amount)
			case SideCredit:
				acc.TotalCredit = acc.TotalCredit.Add(entry.Amount)
				acc.Balance = acc.Balance.Sub(entry.Amount)
			default:
				return Ledger{}, fmt.Errorf("transaction %s entry %d: %w", tx.ID, idx, ErrInvalidSide)
			}
			acc.Lines = append(acc.Lines, LedgerLine{
				TransactionID: tx.ID,
				Date:          tx.Date,
				Reference:     tx.Reference,
				Description:   tx.Description,
				Side:          entry.Side,
				Amount:        entry.Amount,
				Balance:       acc.Balance,
			})
		}
	}
	return ledger, nil
}

// CheckEntries reports the first entry that names an account outside chart or
// carries a side other than debit or credit.
func CheckEntries(chart Chart, txs []Transaction) error {
	for _, tx := range txs {
		for idx, entry := range tx.Entries {
			if _, err := chart.Classify(entry.Account); err != nil {
				return fmt.Errorf("transaction %s entry %d: %w: %q", tx.ID, idx, ErrUnknownAccount, entry.Account)
			}
			if entry.Side != SideDebit && entry.Side != SideCredit {
				return fmt.Errorf("transaction %s entry %d: %w", tx.ID, idx, ErrInvalidSide)
			}
		}
	}
	return nil
}

// SumByAccounts totals entry amounts on the named accounts, optionally
// restricted to one side. Pass SideAny to sum both sides.
func SumByAccounts(txs []Transaction, names []string, side Side) decimal.Decimal {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	total := decimal.Zero
	for _, tx := range txs {
		for _, entry := range tx.Entries {
			if _, ok := wanted[entry.Account]; !ok {
				continue
			}
			if side != SideAny && entry.Side != side {
				continue
			}
			total = total.Add(entry.Amount)
		}
	}
	return total
}

// MonthTotals carries per-account movement for one calendar month.
type MonthTotals struct {
	Month  string                     `json:"month"`
	Totals map[string]decimal.Decimal `json:"totals"`
}

// MonthlyBreakdown returns the trailing window of months ending with the month
// of now, oldest first. The current month is counted in full, including
// entries dated after now. Every month is present even without activity, and
// each account total is its net movement on the account's normal side.
func MonthlyBreakdown(chart Chart, txs []Transaction, names []string, window int, now time.Time) ([]MonthTotals, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	if err := CheckEntries(chart, txs); err != nil {
		return nil, err
	}
	accounts := make(map[string]Account, len(names))
	for _, name := range names {
		acc, err := chart.Classify(name)
		if err != nil {
			return nil, err
		}
		accounts[name] = acc
	}

	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := current.AddDate(0, -(window - 1), 0)
	end := current.AddDate(0, 1, 0)

	months := make([]MonthTotals, window)
	positions := make(map[string]int, window)
	for i := 0; i < window; i++ {
		key := MonthKey(start.AddDate(0, i, 0))
		positions[key] = i
		totals := make(map[string]decimal.Decimal, len(names))
		for _, name := range names {
			totals[name] = decimal.Zero
		}
		months[i] = MonthTotals{Month: key, Totals: totals}
	}

	for _, tx := range txs {
		date := tx.Date.UTC()
		if date.Before(start) || !date.Before(end) {
			continue
		}
		pos, ok := positions[MonthKey(date)]
		if !ok {
			continue
		}
		for _, entry := range tx.Entries {
			acc, ok := accounts[entry.Account]
			if !ok {
				continue
			}
			delta := entry.Amount
			if entry.Side != acc.NormalSide {
				delta = delta.Neg()
			}
			months[pos].Totals[entry.Account] = months[pos].Totals[entry.Account].Add(delta)
		}
	}
	return months, nil
}

// MonthKey formats t as YYYY-MM in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// ledgerNet is zero whenever every replayed transaction balanced.
func ledgerNet(l Ledger) decimal.Decimal {
	total := decimal.Zero
	for _, acc := range l.Accounts {
		total = total.Add(acc.Balance)
	}
	return total
}
