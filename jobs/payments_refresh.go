package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nummix/backoffice/internal/jobs"
	"github.com/nummix/backoffice/internal/payments"
)

// StatusRefresher re-derives stored payment statuses.
type StatusRefresher interface {
	RefreshStatuses(ctx context.Context) (payments.RefreshResult, error)
}

// PaymentsRefreshJob moves open payments to overdue/pending as their due dates pass.
type PaymentsRefreshJob struct {
	Refresher StatusRefresher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewPaymentsRefreshJob initialises the refresh handler.
func NewPaymentsRefreshJob(refresher StatusRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *PaymentsRefreshJob {
	return &PaymentsRefreshJob{Refresher: refresher, Logger: logger, Metrics: metrics}
}

// Handle executes the refresh.
func (j *PaymentsRefreshJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Refresher == nil {
		return errors.New("payments refresh: handler not configured")
	}
	payload, err := decodeScheduled(t)
	if err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskPaymentsRefreshStatus)
	defer func() {
		err = tracker.End(err)
	}()

	logger := loggerOrDefault(j.Logger).With(slog.String("job", TaskPaymentsRefreshStatus))
	result, err := j.Refresher.RefreshStatuses(ctx)
	if err != nil {
		logger.Error("status refresh failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddOverdue(result.Overdue)
	logger.Info("status refresh completed",
		slog.Time("scheduled_for", payload.ScheduledFor),
		slog.Int("scanned", result.Scanned),
		slog.Int("changed", result.Changed),
		slog.Int("overdue", result.Overdue),
	)
	return nil
}
