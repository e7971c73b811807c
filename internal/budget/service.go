package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nummix/backoffice/internal/events"
	"github.com/nummix/backoffice/internal/shared"
)

// RepositoryPort abstracts budget persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindBudgets(ctx context.Context, owner uuid.UUID, filter Filter) ([]Budget, error)
}

// Service manages budgets and their usage report.
type Service struct {
	repo      RepositoryPort
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the budget service.
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

// Create validates, derives and stores a new budget.
func (s *Service) Create(ctx context.Context, in SaveInput) (Budget, error) {
	if in.Owner == uuid.Nil {
		return Budget{}, fmt.Errorf("budget: owner required: %w", shared.ErrUnauthorized)
	}
	if err := in.Validate(); err != nil {
		return Budget{}, err
	}
	record := DeriveFields(Budget{
		ID:         uuid.New(),
		Owner:      in.Owner,
		Department: in.Department,
		Year:       in.Year,
		Months:     in.Months,
		Version:    1,
	}, s.now())
	var created Budget
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.InsertBudget(ctx, record)
		return err
	})
	if err != nil {
		return Budget{}, err
	}
	s.publish(ctx, events.New(events.BudgetSaved, created.Owner, created.ID, created.Version))
	return created, nil
}

// Update replaces a budget. A non-nil version must match the stored one.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in SaveInput, version *int64) (Budget, error) {
	if in.Owner == uuid.Nil {
		return Budget{}, fmt.Errorf("budget: owner required: %w", shared.ErrUnauthorized)
	}
	if err := in.Validate(); err != nil {
		return Budget{}, err
	}
	var updated Budget
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetBudgetForUpdate(ctx, in.Owner, id)
		if err != nil {
			return err
		}
		if version != nil && *version != current.Version {
			return ErrVersionConflict
		}
		current.Department = in.Department
		current.Year = in.Year
		current.Months = in.Months
		updated, err = tx.UpdateBudget(ctx, DeriveFields(current, s.now()), current.Version)
		return err
	})
	if err != nil {
		return Budget{}, err
	}
	s.publish(ctx, events.New(events.BudgetSaved, updated.Owner, updated.ID, updated.Version))
	return updated, nil
}

// Delete removes an owned budget.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteBudget(ctx, owner, id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.New(events.BudgetDeleted, owner, id, 0))
	return nil
}

// Get loads one owned budget.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (Budget, error) {
	var out Budget
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.GetBudget(ctx, owner, id)
		return err
	})
	return out, err
}

// List returns the owner's budgets matching filter.
func (s *Service) List(ctx context.Context, owner uuid.UUID, filter Filter) ([]Budget, error) {
	return s.repo.FindBudgets(ctx, owner, filter)
}

// Report builds the usage report over the owner's filtered budgets.
func (s *Service) Report(ctx context.Context, owner uuid.UUID, filter Filter) (UsageReport, error) {
	budgets, err := s.repo.FindBudgets(ctx, owner, filter)
	if err != nil {
		return UsageReport{}, err
	}
	return BuildUsageReport(budgets), nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish budget event", slog.String("type", event.Type), slog.Any("error", err))
	}
}
