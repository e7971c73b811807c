package budget

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nummix/backoffice/internal/export"
	"github.com/nummix/backoffice/internal/platform/httpx"
	"github.com/nummix/backoffice/internal/shared"
)

// Handler wires budget endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	exporter *export.Exporter
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, exporter *export.Exporter) *Handler {
	return &Handler{logger: logger, service: service, exporter: exporter, validate: validator.New()}
}

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/budgets", h.list)
	r.Post("/budgets", h.create)
	r.Get("/budgets/report", h.report)
	r.Get("/budgets/report/export", h.exportReport)
	r.Get("/budgets/{id}", h.get)
	r.Put("/budgets/{id}", h.update)
	r.Delete("/budgets/{id}", h.delete)
}

type budgetRequest struct {
	Department string          `json:"department" validate:"required"`
	Year       int             `json:"year" validate:"required,gte=1900,lte=9999"`
	Months     []MonthlyBudget `json:"months"`
	Version    *int64          `json:"version,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, filter, err := h.ownerAndFilter(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	budgets, err := h.service.List(r.Context(), owner, filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"budgets": budgets})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	var req budgetRequest
	if err := httpx.DecodeAndValidate(w, r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	created, err := h.service.Create(r.Context(), SaveInput{Owner: owner, Department: req.Department, Year: req.Year, Months: req.Months})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner, id, err := ownerAndID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	b, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	owner, id, err := ownerAndID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req budgetRequest
	if err := httpx.DecodeAndValidate(w, r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, SaveInput{Owner: owner, Department: req.Department, Year: req.Year, Months: req.Months}, req.Version)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	owner, id, err := ownerAndID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	owner, filter, err := h.ownerAndFilter(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	report, err := h.service.Report(r.Context(), owner, filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request) {
	owner, filter, err := h.ownerAndFilter(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	report, err := h.service.Report(r.Context(), owner, filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.exporter.Serve(w, r, "budget-usage", report.Table())
}

func (h *Handler) ownerAndFilter(r *http.Request) (uuid.UUID, Filter, error) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		return uuid.Nil, Filter{}, shared.ErrUnauthorized
	}
	filter := Filter{Department: r.URL.Query().Get("department")}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return uuid.Nil, Filter{}, shared.FieldError{Field: "year", Reason: "must be a number"}
		}
		filter.Year = year
	}
	return owner, filter, nil
}

func ownerAndID(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, shared.ErrUnauthorized
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrBudgetNotFound
	}
	return owner, id, nil
}
