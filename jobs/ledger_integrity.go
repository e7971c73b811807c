package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nummix/backoffice/internal/accounting"
	jobmetrics "github.com/nummix/backoffice/internal/jobs"
)

// IntegrityChecker scans the whole ledger.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context) (accounting.IntegrityReport, error)
}

// LedgerIntegrityJob logs and counts transactions that no longer balance.
type LedgerIntegrityJob struct {
	Checker IntegrityChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob initialises the integrity scan handler.
func NewLedgerIntegrityJob(checker IntegrityChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Checker: checker, Logger: logger, Metrics: metrics}
}

// Handle executes the integrity scan.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Checker == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	if _, err := decodeScheduled(t); err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() {
		err = tracker.End(err)
	}()

	logger := loggerOrDefault(j.Logger).With(slog.String("job", TaskLedgerIntegrity))
	report, err := j.Checker.CheckIntegrity(ctx)
	if err != nil {
		logger.Error("integrity scan failed", slog.Any("error", err))
		return err
	}
	for _, f := range report.Findings {
		logger.Warn("ledger imbalance detected",
			slog.String("owner", f.Owner.String()),
			slog.String("transaction", f.TransactionID.String()),
			slog.String("reason", f.Reason),
		)
	}
	j.Metrics.AddImbalances(len(report.Findings))
	logger.Info("integrity scan completed",
		slog.Int("owners", report.Owners),
		slog.Int("transactions", report.Transactions),
		slog.Int("findings", len(report.Findings)),
	)
	return nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
