package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nummix/backoffice/internal/events"
	"github.com/nummix/backoffice/internal/shared"
)

const idempotencyModule = "accounting.transactions"

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindTransactionsByOwner(ctx context.Context, owner uuid.UUID, period *DateRange) ([]Transaction, error)
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
}

// IdempotencyPort claims request keys so replays are rejected.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// MetricsPort records ledger write outcomes.
type MetricsPort interface {
	TransactionWritten(operation string)
	ValidationFailed(reason string)
}

// Service coordinates creating, updating and reading ledger transactions.
type Service struct {
	repo      RepositoryPort
	chart     Chart
	publisher events.Publisher
	idem      IdempotencyPort
	metrics   MetricsPort
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the ledger service around an injected chart of accounts.
func NewService(repo RepositoryPort, chart Chart, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:      repo,
		chart:     chart,
		publisher: publisher,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithIdempotency enables Idempotency-Key handling on create.
func (s *Service) WithIdempotency(idem IdempotencyPort) {
	s.idem = idem
}

// WithMetrics attaches write counters.
func (s *Service) WithMetrics(metrics MetricsPort) {
	s.metrics = metrics
}

// WithLogger replaces the default logger.
func (s *Service) WithLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Chart returns the chart of accounts the service validates against.
func (s *Service) Chart() Chart {
	return s.chart
}

// CreateTransaction validates and persists a new transaction. A non-empty
// idempotencyKey may only be used once per owner.
func (s *Service) CreateTransaction(ctx context.Context, in CreateTransactionInput, idempotencyKey string) (Transaction, error) {
	if in.Owner == uuid.Nil {
		return Transaction{}, fmt.Errorf("accounting: owner required: %w", shared.ErrUnauthorized)
	}
	if err := in.Validate(s.chart); err != nil {
		s.recordFailure(err)
		return Transaction{}, err
	}

	claimed := ""
	if key := strings.TrimSpace(idempotencyKey); key != "" && s.idem != nil {
		claimed = in.Owner.String() + ":" + key
		if err := s.idem.CheckAndInsert(ctx, claimed, idempotencyModule); err != nil {
			return Transaction{}, err
		}
	}

	now := s.now().UTC()
	record := Transaction{
		ID:          uuid.New(),
		Owner:       in.Owner,
		Date:        in.Date.UTC(),
		Reference:   strings.TrimSpace(in.Reference),
		Description: in.Description,
		Entries:     append([]Entry(nil), in.Entries...),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var created Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.InsertTransaction(ctx, record)
		return err
	})
	if err != nil {
		if claimed != "" {
			if delErr := s.idem.Delete(ctx, claimed, idempotencyModule); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return Transaction{}, err
	}
	s.written("create")
	s.publish(ctx, events.New(events.TransactionCreated, created.Owner, created.ID, created.Version))
	return created, nil
}

// UpdateTransaction applies a partial update. Entries are revalidated only when
// replaced; a supplied Version must match the stored one.
func (s *Service) UpdateTransaction(ctx context.Context, in UpdateTransactionInput) (Transaction, error) {
	if in.Owner == uuid.Nil {
		return Transaction{}, fmt.Errorf("accounting: owner required: %w", shared.ErrUnauthorized)
	}
	if err := in.Validate(s.chart); err != nil {
		s.recordFailure(err)
		return Transaction{}, err
	}
	var updated Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetTransactionForUpdate(ctx, in.Owner, in.ID)
		if err != nil {
			return err
		}
		if in.Version != nil && *in.Version != current.Version {
			return ErrVersionConflict
		}
		next := in.Apply(current)
		next.Date = next.Date.UTC()
		next.UpdatedAt = s.now().UTC()
		updated, err = tx.UpdateTransaction(ctx, next, current.Version)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	s.written("update")
	s.publish(ctx, events.New(events.TransactionUpdated, updated.Owner, updated.ID, updated.Version))
	return updated, nil
}

// DeleteTransaction removes an owned transaction.
func (s *Service) DeleteTransaction(ctx context.Context, owner, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteTransaction(ctx, owner, id)
	})
	if err != nil {
		return err
	}
	s.written("delete")
	s.publish(ctx, events.New(events.TransactionDeleted, owner, id, 0))
	return nil
}

// GetTransaction loads one owned transaction.
func (s *Service) GetTransaction(ctx context.Context, owner, id uuid.UUID) (Transaction, error) {
	var out Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.GetTransaction(ctx, owner, id)
		return err
	})
	return out, err
}

// ListTransactions returns the owner's transactions in date order.
func (s *Service) ListTransactions(ctx context.Context, owner uuid.UUID, period *DateRange) ([]Transaction, error) {
	return s.repo.FindTransactionsByOwner(ctx, owner, period)
}

// IntegrityFinding describes a stored transaction that fails validation.
type IntegrityFinding struct {
	Owner         uuid.UUID
	TransactionID uuid.UUID
	Reason        string
}

// IntegrityReport summarises a full ledger scan.
type IntegrityReport struct {
	Owners       int
	Transactions int
	Findings     []IntegrityFinding
}

// CheckIntegrity replays every owner's transactions through the validator and
// the aggregator and reports anything that no longer balances.
func (s *Service) CheckIntegrity(ctx context.Context) (IntegrityReport, error) {
	owners, err := s.repo.ListOwners(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}
	report := IntegrityReport{Owners: len(owners)}
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		txs, err := s.repo.FindTransactionsByOwner(ctx, owner, nil)
		if err != nil {
			return report, err
		}
		report.Transactions += len(txs)
		clean := true
		for _, tx := range txs {
			if err := ValidateEntries(s.chart, tx.Entries); err != nil {
				clean = false
				report.Findings = append(report.Findings, IntegrityFinding{Owner: owner, TransactionID: tx.ID, Reason: err.Error()})
			}
		}
		if !clean {
			continue
		}
		ledger, err := BuildLedger(s.chart, txs)
		if err != nil {
			report.Findings = append(report.Findings, IntegrityFinding{Owner: owner, Reason: err.Error()})
			continue
		}
		if total := ledgerNet(ledger); !total.IsZero() {
			report.Findings = append(report.Findings, IntegrityFinding{
				Owner:  owner,
				Reason: fmt.Sprintf("ledger debits exceed credits by %s", total.StringFixed(2)),
			})
		}
	}
	return report, nil
}

func (s *Service) recordFailure(err error) {
	if s.metrics != nil {
		s.metrics.ValidationFailed(failureReason(err))
	}
}

func (s *Service) written(operation string) {
	if s.metrics != nil {
		s.metrics.TransactionWritten(operation)
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish ledger event", slog.String("type", event.Type), slog.Any("error", err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrTooFewEntries):
		return "too_few_entries"
	case errors.Is(err, ErrUnbalanced):
		return "unbalanced"
	case errors.Is(err, ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, ErrNegativeAmount), errors.Is(err, ErrAmountPrecision):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidSide):
		return "invalid_side"
	default:
		return "invalid_input"
	}
}
