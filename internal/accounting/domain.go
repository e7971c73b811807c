package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/shared"
)

// Side enumerates the two legs of double-entry bookkeeping.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
	// SideAny disables side filtering in aggregations.
	SideAny Side = ""
)

// Valid reports whether s is debit or credit.
func (s Side) Valid() bool {
	return s == SideDebit || s == SideCredit
}

// Category enumerates chart of accounts classifications.
type Category string

const (
	CategoryAsset     Category = "asset"
	CategoryLiability Category = "liability"
	CategoryEquity    Category = "equity"
	CategoryIncome    Category = "income"
	CategoryExpense   Category = "expense"
)

// Categories lists every classification in presentation order.
var Categories = []Category{CategoryAsset, CategoryLiability, CategoryEquity, CategoryIncome, CategoryExpense}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Entry is one leg of a transaction.
type Entry struct {
	Account string          `json:"account"`
	Side    Side            `json:"side"`
	Amount  decimal.Decimal `json:"amount"`
}

// Transaction is a dated, balanced financial event owned by one user.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	Owner       uuid.UUID `json:"-"`
	Date        time.Time `json:"date"`
	Reference   string    `json:"reference"`
	Description string    `json:"description,omitempty"`
	Entries     []Entry   `json:"entries"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DateRange bounds transaction queries. Zero values leave that side open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// CreateTransactionInput carries fields for a new transaction.
type CreateTransactionInput struct {
	Owner       uuid.UUID
	Date        time.Time
	Reference   string
	Description string
	Entries     []Entry
}

// UpdateTransactionInput carries a partial update. Nil fields are left untouched;
// a nil Entries keeps the stored legs without revalidating them.
type UpdateTransactionInput struct {
	Owner       uuid.UUID
	ID          uuid.UUID
	Date        *time.Time
	Reference   *string
	Description *string
	Entries     *[]Entry
	Version     *int64
}

var (
	// ErrTooFewEntries indicates less than two entries.
	ErrTooFewEntries = shared.NewValidationError("accounting: transaction requires at least two entries")
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = shared.NewValidationError("accounting: entries must balance")
	// ErrUnknownAccount indicates an account outside the chart.
	ErrUnknownAccount = shared.NewValidationError("accounting: unknown account")
	// ErrInvalidSide indicates a side other than debit or credit.
	ErrInvalidSide = shared.NewValidationError("accounting: side must be debit or credit")
	// ErrNegativeAmount indicates an amount below zero.
	ErrNegativeAmount = shared.NewValidationError("accounting: amount must not be negative")
	// ErrAmountPrecision indicates more than two decimal places.
	ErrAmountPrecision = shared.NewValidationError("accounting: amount supports at most two decimal places")
	// ErrInvalidWindow indicates a non-positive month window.
	ErrInvalidWindow = shared.NewValidationError("accounting: window must be at least one month")
	// ErrReferenceRequired indicates a blank reference.
	ErrReferenceRequired = shared.NewValidationError("accounting: reference required")
	// ErrDateRequired indicates a missing effective date.
	ErrDateRequired = shared.NewValidationError("accounting: date required")
	// ErrTransactionNotFound indicates missing or foreign transaction.
	ErrTransactionNotFound = shared.NewNotFoundError("accounting: transaction not found")
	// ErrVersionConflict indicates the caller updated a stale copy.
	ErrVersionConflict = shared.NewConflictError("accounting: transaction was modified concurrently")
)

// ValidateEntries checks that entries reference known accounts and balance exactly.
func ValidateEntries(chart Chart, entries []Entry) error {
	if len(entries) < 2 {
		return ErrTooFewEntries
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, entry := range entries {
		if _, err := chart.Classify(entry.Account); err != nil {
			return fmt.Errorf("entry %d: %w", idx, err)
		}
		if entry.Amount.IsNegative() {
			return fmt.Errorf("entry %d: %w", idx, ErrNegativeAmount)
		}
		if !entry.Amount.Equal(entry.Amount.Round(2)) {
			return fmt.Errorf("entry %d: %w", idx, ErrAmountPrecision)
		}
		switch entry.Side {
		case SideDebit:
			debit = debit.Add(entry.Amount)
		case SideCredit:
			credit = credit.Add(entry.Amount)
		default:
			return fmt.Errorf("entry %d: %w", idx, ErrInvalidSide)
		}
	}
	if !debit.Equal(credit) {
		return ErrUnbalanced
	}
	return nil
}

// Validate ensures the create input meets minimum criteria.
func (in CreateTransactionInput) Validate(chart Chart) error {
	if strings.TrimSpace(in.Reference) == "" {
		return ErrReferenceRequired
	}
	if in.Date.IsZero() {
		return ErrDateRequired
	}
	return ValidateEntries(chart, in.Entries)
}

// Validate checks only the fields the update replaces.
func (in UpdateTransactionInput) Validate(chart Chart) error {
	if in.Reference != nil && strings.TrimSpace(*in.Reference) == "" {
		return ErrReferenceRequired
	}
	if in.Date != nil && in.Date.IsZero() {
		return ErrDateRequired
	}
	if in.Entries != nil {
		return ValidateEntries(chart, *in.Entries)
	}
	return nil
}

// Apply merges the update into tx.
func (in UpdateTransactionInput) Apply(tx Transaction) Transaction {
	if in.Date != nil {
		tx.Date = *in.Date
	}
	if in.Reference != nil {
		tx.Reference = strings.TrimSpace(*in.Reference)
	}
	if in.Description != nil {
		tx.Description = *in.Description
	}
	if in.Entries != nil {
		tx.Entries = append([]Entry(nil), (*in.Entries)...)
	}
	return tx
}
