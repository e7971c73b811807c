package reports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nummix/backoffice/internal/accounting"
)

// TransactionSource loads an owner's transactions in one consistent read.
type TransactionSource interface {
	FindTransactionsByOwner(ctx context.Context, owner uuid.UUID, period *accounting.DateRange) ([]accounting.Transaction, error)
}

// MetricsPort counts built reports.
type MetricsPort interface {
	ReportBuilt(kind string)
}

// Service builds reports from freshly loaded snapshots. Nothing is cached.
type Service struct {
	source  TransactionSource
	builder Builder
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs a report service.
func NewService(source TransactionSource, builder Builder) *Service {
	return &Service{source: source, builder: builder, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches the report counter.
func (s *Service) WithMetrics(metrics MetricsPort) {
	s.metrics = metrics
}

// Build loads the owner's snapshot and builds one report from it.
func (s *Service) Build(ctx context.Context, owner uuid.UUID, kind Kind, period *accounting.DateRange) (Report, error) {
	txs, err := s.source.FindTransactionsByOwner(ctx, owner, period)
	if err != nil {
		return nil, err
	}
	report, err := s.builder.Build(kind, txs, s.now())
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ReportBuilt(string(kind))
	}
	return report, nil
}

// Dashboard is a typed shortcut used by the overview endpoint.
func (s *Service) Dashboard(ctx context.Context, owner uuid.UUID) (DashboardStats, error) {
	report, err := s.Build(ctx, owner, KindDashboard, nil)
	if err != nil {
		return DashboardStats{}, err
	}
	return report.(DashboardStats), nil
}
