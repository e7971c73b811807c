package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nummix/backoffice/internal/accounting"
	"github.com/nummix/backoffice/internal/accounting/reports"
	"github.com/nummix/backoffice/internal/auth"
	"github.com/nummix/backoffice/internal/budget"
	"github.com/nummix/backoffice/internal/observability"
	"github.com/nummix/backoffice/internal/payments"
	"github.com/nummix/backoffice/internal/payroll"
	"github.com/nummix/backoffice/jobs"
	"github.com/nummix/backoffice/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	AuthHandler       *auth.Handler
	AccountingHandler *accounting.Handler
	ReportsHandler    *reports.Handler
	BudgetHandler     *budget.Handler
	PaymentsHandler   *payments.Handler
	PayrollHandler    *payroll.Handler
	OverviewHandler   *OverviewHandler

	PDFHandler *report.Handler
	JobHandler *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}
	if params.PDFHandler != nil {
		params.PDFHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		params.JobHandler.MountRoutes(r)
	}

	params.AuthHandler.MountRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthHandler.Middleware)

		if params.AccountingHandler != nil {
			params.AccountingHandler.MountRoutes(r)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
		if params.BudgetHandler != nil {
			params.BudgetHandler.MountRoutes(r)
		}
		if params.PaymentsHandler != nil {
			params.PaymentsHandler.MountRoutes(r)
		}
		if params.PayrollHandler != nil {
			params.PayrollHandler.MountRoutes(r)
		}
		if params.OverviewHandler != nil {
			r.Method(http.MethodGet, "/overview", params.OverviewHandler)
		}
		if params.JobHandler != nil {
			params.JobHandler.MountTriggerRoutes(r)
		}
	})

	return r
}
