package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nummix/backoffice/internal/accounting"
	"github.com/nummix/backoffice/internal/export"
	"github.com/nummix/backoffice/internal/platform/httpx"
	"github.com/nummix/backoffice/internal/shared"
)

// Handler serves reports as JSON and as downloads.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	exporter *export.Exporter
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, exporter *export.Exporter) *Handler {
	return &Handler{logger: logger, service: service, exporter: exporter}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounting/reports/{kind}", h.show)
	r.Get("/accounting/reports/{kind}/export", h.export)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	report, ok := h.build(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"kind": report.Kind(), "report": report})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	report, ok := h.build(w, r)
	if !ok {
		return
	}
	h.exporter.Serve(w, r, string(report.Kind()), report.Table())
}

func (h *Handler) build(w http.ResponseWriter, r *http.Request) (Report, bool) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return nil, false
	}
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return nil, false
	}
	period, err := accounting.ParseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return nil, false
	}
	report, err := h.service.Build(r.Context(), owner, kind, period)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return nil, false
	}
	return report, true
}
