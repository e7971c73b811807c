package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nummix/backoffice/internal/events"
	"github.com/nummix/backoffice/internal/shared"
)

// RepositoryPort abstracts payment persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindPayments(ctx context.Context, owner uuid.UUID, filter Filter) ([]Payment, error)
	ListOpen(ctx context.Context) ([]Payment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status, now time.Time) (bool, error)
}

// Service manages payments and the due-date schedule.
type Service struct {
	repo      RepositoryPort
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the payments service.
func NewService(repo RepositoryPort, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) apply(p Payment, in SaveInput) Payment {
	kind, _ := ParseKind(string(in.Kind))
	p.Kind = kind
	p.Counterparty = strings.TrimSpace(in.Counterparty)
	p.Description = in.Description
	p.Amount = in.Amount
	p.DueDate = in.DueDate.UTC()
	if in.Status != "" {
		status, _ := ParseStatus(in.Status)
		p.Status = status
	}
	return DeriveStatus(p, s.now())
}

// Create validates, derives the status and stores a payment.
func (s *Service) Create(ctx context.Context, in SaveInput) (Payment, error) {
	if in.Owner == uuid.Nil {
		return Payment{}, fmt.Errorf("payments: owner required: %w", shared.ErrUnauthorized)
	}
	if err := in.Validate(); err != nil {
		return Payment{}, err
	}
	now := s.now().UTC()
	record := s.apply(Payment{ID: uuid.New(), Owner: in.Owner, Version: 1, CreatedAt: now, UpdatedAt: now}, in)
	var created Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.InsertPayment(ctx, record)
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	s.publish(ctx, events.New(events.PaymentSaved, created.Owner, created.ID, created.Version))
	return created, nil
}

// Update replaces a payment and re-derives its status. A non-nil version must
// match the stored one. A stored terminal status stays unless the input names a status.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in SaveInput, version *int64) (Payment, error) {
	if in.Owner == uuid.Nil {
		return Payment{}, fmt.Errorf("payments: owner required: %w", shared.ErrUnauthorized)
	}
	if err := in.Validate(); err != nil {
		return Payment{}, err
	}
	var updated Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPaymentForUpdate(ctx, in.Owner, id)
		if err != nil {
			return err
		}
		if version != nil && *version != current.Version {
			return ErrVersionConflict
		}
		next := s.apply(current, in)
		next.UpdatedAt = s.now().UTC()
		updated, err = tx.UpdatePayment(ctx, next, current.Version)
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	s.publish(ctx, events.New(events.PaymentSaved, updated.Owner, updated.ID, updated.Version))
	return updated, nil
}

// Delete removes an owned payment.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeletePayment(ctx, owner, id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.New(events.PaymentDeleted, owner, id, 0))
	return nil
}

// Get loads one owned payment.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (Payment, error) {
	var out Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.GetPayment(ctx, owner, id)
		return err
	})
	return out, err
}

// List returns the owner's payments matching filter.
func (s *Service) List(ctx context.Context, owner uuid.UUID, filter Filter) ([]Payment, error) {
	return s.repo.FindPayments(ctx, owner, filter)
}

// Schedule returns the owner's payments due in the next seven days.
func (s *Service) Schedule(ctx context.Context, owner uuid.UUID) (Schedule, error) {
	payments, err := s.repo.FindPayments(ctx, owner, Filter{})
	if err != nil {
		return Schedule{}, err
	}
	return BuildSchedule(payments, s.now()), nil
}

// RefreshResult summarises a status refresh run.
type RefreshResult struct {
	Scanned int
	Changed int
	Overdue int
}

// RefreshStatuses re-derives the status of every open payment and stores the
// ones that moved. Payments that became overdue publish an event.
func (s *Service) RefreshStatuses(ctx context.Context) (RefreshResult, error) {
	open, err := s.repo.ListOpen(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	now := s.now().UTC()
	result := RefreshResult{Scanned: len(open)}
	for _, p := range open {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		next := DeriveStatus(p, now)
		if next.Status == p.Status {
			continue
		}
		changed, err := s.repo.SetStatus(ctx, p.ID, next.Status, now)
		if err != nil {
			return result, err
		}
		if !changed {
			continue
		}
		result.Changed++
		if next.Status == StatusOverdue {
			result.Overdue++
			s.publish(ctx, events.New(events.PaymentOverdue, p.Owner, p.ID, p.Version))
		}
	}
	return result, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish payment event", slog.String("type", event.Type), slog.Any("error", err))
	}
}
