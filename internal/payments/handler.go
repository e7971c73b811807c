package payments

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/export"
	"github.com/nummix/backoffice/internal/platform/httpx"
	"github.com/nummix/backoffice/internal/shared"
)

// Handler wires payment endpoints.
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

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/payments", h.list)
	r.Post("/payments", h.create)
	r.Get("/payments/schedule", h.schedule)
	r.Get("/payments/schedule/export", h.exportSchedule)
	r.Get("/payments/{id}", h.get)
	r.Put("/payments/{id}", h.update)
	r.Delete("/payments/{id}", h.delete)
}

type paymentRequest struct {
	Kind         string          `json:"kind" validate:"required,oneof=payment supplier_payment"`
	Counterparty string          `json:"counterparty" validate:"required"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      time.Time       `json:"dueDate" validate:"required"`
	Status       string          `json:"status"`
	Version      *int64          `json:"version,omitempty"`
}

func (req paymentRequest) input(owner uuid.UUID) SaveInput {
	return SaveInput{
		Owner:        owner,
		Kind:         Kind(req.Kind),
		Counterparty: req.Counterparty,
		Description:  req.Description,
		Amount:       req.Amount,
		DueDate:      req.DueDate,
		Status:       req.Status,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	var filter Filter
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, err := ParseKind(raw)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		filter.Kind = kind
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		filter.Status = status
	}
	payments, err := h.service.List(r.Context(), owner, filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeAndValidate(w, r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	created, err := h.service.Create(r.Context(), req.input(owner))
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
	p, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	owner, id, err := ownerAndID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeAndValidate(w, r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, req.input(owner), req.Version)
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

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	schedule, err := h.service.Schedule(r.Context(), owner)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, schedule)
}

func (h *Handler) exportSchedule(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	schedule, err := h.service.Schedule(r.Context(), owner)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.exporter.Serve(w, r, "payment-schedule", schedule.Table())
}

func ownerAndID(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, shared.ErrUnauthorized
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrPaymentNotFound
	}
	return owner, id, nil
}
