package accounting

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/platform/httpx"
	"github.com/nummix/backoffice/internal/shared"
)

// IdempotencyHeader carries the client supplied replay key.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounting/accounts", h.listAccounts)
	r.Get("/accounting/transactions", h.listTransactions)
	r.Post("/accounting/transactions", h.createTransaction)
	r.Get("/accounting/transactions/{id}", h.getTransaction)
	r.Put("/accounting/transactions/{id}", h.updateTransaction)
	r.Delete("/accounting/transactions/{id}", h.deleteTransaction)
}

type entryRequest struct {
	Account string          `json:"account" validate:"required"`
	Side    string          `json:"side" validate:"required,oneof=debit credit"`
	Amount  decimal.Decimal `json:"amount"`
}

type createTransactionRequest struct {
	Date        time.Time      `json:"date" validate:"required"`
	Reference   string         `json:"reference" validate:"required"`
	Description string         `json:"description"`
	Entries     []entryRequest `json:"entries" validate:"dive"`
}

type updateTransactionRequest struct {
	Date        *time.Time      `json:"date"`
	Reference   *string         `json:"reference"`
	Description *string         `json:"description"`
	Entries     *[]entryRequest `json:"entries"`
	Version     *int64          `json:"version"`
}

func toEntries(in []entryRequest) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		out = append(out, Entry{Account: e.Account, Side: Side(e.Side), Amount: e.Amount})
	}
	return out
}

func (h *Handler) listAccounts(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": h.service.Chart().Accounts()})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	period, err := ParseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	txs, err := h.service.ListTransactions(r.Context(), owner, period)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	var req createTransactionRequest
	if err := httpx.DecodeAndValidate(w, r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	created, err := h.service.CreateTransaction(r.Context(), CreateTransactionInput{
		Owner:       owner,
		Date:        req.Date,
		Reference:   req.Reference,
		Description: req.Description,
		Entries:     toEntries(req.Entries),
	}, r.Header.Get(IdempotencyHeader))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	owner, id, err := h.ownerAndID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	tx, err := h.service.GetTransaction(r.Context(), owner, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

func (h *Handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, id, err := h.ownerAndID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req updateTransactionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	in := UpdateTransactionInput{
		Owner:       owner,
		ID:          id,
		Date:        req.Date,
		Reference:   req.Reference,
		Description: req.Description,
		Version:     req.Version,
	}
	if req.Entries != nil {
		entries := toEntries(*req.Entries)
		in.Entries = &entries
	}
	updated, err := h.service.UpdateTransaction(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, id, err := h.ownerAndID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), owner, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ownerAndID(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, shared.ErrUnauthorized
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// Malformed ids cannot match any row.
		return uuid.Nil, uuid.Nil, ErrTransactionNotFound
	}
	return owner, id, nil
}

// ParseDateRange reads optional from/to query values as YYYY-MM-DD or RFC3339.
// A date-only upper bound covers the whole day.
func ParseDateRange(from, to string) (*DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	var period DateRange
	if from != "" {
		t, _, err := parseDate(from)
		if err != nil {
			return nil, shared.FieldError{Field: "from", Reason: err.Error()}
		}
		period.From = t
	}
	if to != "" {
		t, dateOnly, err := parseDate(to)
		if err != nil {
			return nil, shared.FieldError{Field: "to", Reason: err.Error()}
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		period.To = t
	}
	if !period.From.IsZero() && !period.To.IsZero() && period.To.Before(period.From) {
		return nil, shared.FieldError{Field: "to", Reason: "must not be before from"}
	}
	return &period, nil
}

func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, errors.New("expected YYYY-MM-DD or RFC3339")
	}
	return t.UTC(), false, nil
}
