package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nummix/backoffice/internal/accounting/reports"
	"github.com/nummix/backoffice/internal/budget"
	"github.com/nummix/backoffice/internal/payments"
	"github.com/nummix/backoffice/internal/platform/httpx"
	"github.com/nummix/backoffice/internal/shared"
)

// DashboardSource loads the ledger dashboard for an owner.
type DashboardSource interface {
	Dashboard(ctx context.Context, owner uuid.UUID) (reports.DashboardStats, error)
}

// BudgetSource loads the budget usage report for an owner.
type BudgetSource interface {
	Report(ctx context.Context, owner uuid.UUID, filter budget.Filter) (budget.UsageReport, error)
}

// ScheduleSource loads the upcoming payment schedule for an owner.
type ScheduleSource interface {
	Schedule(ctx context.Context, owner uuid.UUID) (payments.Schedule, error)
}

// Overview is the combined landing payload.
type Overview struct {
	Dashboard reports.DashboardStats `json:"dashboard"`
	Budgets   budget.UsageReport     `json:"budgets"`
	Schedule  payments.Schedule      `json:"schedule"`
}

// OverviewHandler serves GET /overview.
type OverviewHandler struct {
	logger    *slog.Logger
	dashboard DashboardSource
	budgets   BudgetSource
	schedule  ScheduleSource
}

// NewOverviewHandler constructs an OverviewHandler.
func NewOverviewHandler(logger *slog.Logger, dashboard DashboardSource, budgets BudgetSource, schedule ScheduleSource) *OverviewHandler {
	return &OverviewHandler{logger: logger, dashboard: dashboard, budgets: budgets, schedule: schedule}
}

// Load fetches the three snapshots concurrently. The first failure cancels the rest.
func (h *OverviewHandler) Load(ctx context.Context, owner uuid.UUID) (Overview, error) {
	var out Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := h.dashboard.Dashboard(ctx, owner)
		out.Dashboard = stats
		return err
	})
	g.Go(func() error {
		report, err := h.budgets.Report(ctx, owner, budget.Filter{})
		out.Budgets = report
		return err
	})
	g.Go(func() error {
		schedule, err := h.schedule.Schedule(ctx, owner)
		out.Schedule = schedule
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// ServeHTTP implements http.Handler.
func (h *OverviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	overview, err := h.Load(r.Context(), owner)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}
