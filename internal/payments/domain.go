// Package payments tracks scheduled payments and their due-date status.
package payments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/shared"
)

// Kind distinguishes customer-facing payments from supplier payments.
type Kind string

const (
	KindPayment         Kind = "payment"
	KindSupplierPayment Kind = "supplier_payment"
)

// Status is derived from the due date unless terminal.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusPending   Status = "pending"
	StatusOverdue   Status = "overdue"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PendingWindow is how far ahead a payment counts as pending.
const PendingWindow = 7 * 24 * time.Hour

var (
	ErrInvalidKind          = shared.NewValidationError("payments: kind must be payment or supplier_payment")
	ErrInvalidStatus        = shared.NewValidationError("payments: unknown status")
	ErrCounterpartyRequired = shared.NewValidationError("payments: counterparty required")
	ErrDueDateRequired      = shared.NewValidationError("payments: due date required")
	ErrInvalidAmount        = shared.NewValidationError("payments: amount must be non-negative with at most 2 decimals")
	ErrPaymentNotFound      = shared.NewNotFoundError("payments: not found")
	ErrVersionConflict      = shared.NewConflictError("payments: version conflict")
)

// Payment is an amount due to or from a counterparty on a date.
type Payment struct {
	ID           uuid.UUID       `json:"id"`
	Owner        uuid.UUID       `json:"-"`
	Kind         Kind            `json:"kind"`
	Counterparty string          `json:"counterparty"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      time.Time       `json:"dueDate"`
	Status       Status          `json:"status"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Filter narrows payment queries. Zero values match everything.
type Filter struct {
	Kind   Kind
	Status Status
}

// SaveInput carries a create or full replacement of a payment.
type SaveInput struct {
	Owner        uuid.UUID
	Kind         Kind
	Counterparty string
	Description  string
	Amount       decimal.Decimal
	DueDate      time.Time
	Status       string
}

// Validate checks the input shape.
func (in SaveInput) Validate() error {
	if _, err := ParseKind(string(in.Kind)); err != nil {
		return err
	}
	if strings.TrimSpace(in.Counterparty) == "" {
		return ErrCounterpartyRequired
	}
	if in.DueDate.IsZero() {
		return ErrDueDateRequired
	}
	if in.Amount.IsNegative() || !in.Amount.Equal(in.Amount.Round(2)) {
		return ErrInvalidAmount
	}
	if in.Status != "" {
		if _, err := ParseStatus(in.Status); err != nil {
			return err
		}
	}
	return nil
}

// ParseKind normalises a kind name.
func ParseKind(v string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(v))) {
	case KindPayment:
		return KindPayment, nil
	case KindSupplierPayment:
		return KindSupplierPayment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, v)
	}
}

// ParseStatus normalises a status name case-insensitively.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	switch s {
	case StatusPlanned, StatusPending, StatusOverdue, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
}

// Terminal reports whether s pins the payment status. Matching ignores case
// because stored rows may carry "Completed" or "Cancelled".
func (s Status) Terminal() bool {
	switch Status(strings.ToLower(string(s))) {
	case StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// DeriveStatus recomputes a non-terminal status from the due date: before
// today is overdue, within PendingWindow is pending, later is planned.
// Terminal statuses are kept, lower-cased.
func DeriveStatus(p Payment, now time.Time) Payment {
	if p.Status.Terminal() {
		p.Status = Status(strings.ToLower(string(p.Status)))
		return p
	}
	today := startOfDay(now)
	due := startOfDay(p.DueDate)
	switch {
	case due.Before(today):
		p.Status = StatusOverdue
	case !due.After(today.Add(PendingWindow)):
		p.Status = StatusPending
	default:
		p.Status = StatusPlanned
	}
	return p
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
