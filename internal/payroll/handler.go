package payroll

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/platform/httpx"
)

// Handler exposes the tax calculator.
type Handler struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger, validate: validator.New()}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payroll/taxes", h.calculate)
}

type taxRequest struct {
	GrossSalary   decimal.Decimal `json:"grossSalary"`
	EmployeeClass string          `json:"employeeClass" validate:"required"`
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req taxRequest
	if err := httpx.DecodeAndValidate(w, r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	class, err := ParseEmployeeClass(req.EmployeeClass)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	result, err := CalculateAllTaxes(req.GrossSalary, class)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
