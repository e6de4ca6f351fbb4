package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/salonpos/salonpos/internal/platform/httpx"
	"github.com/salonpos/salonpos/internal/rbac"
	"github.com/salonpos/salonpos/internal/shared"
)

// IdempotencyHeader carries the client-generated key for POST /sales.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for sales.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a sales handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleShow)
	r.With(h.rbac.RequireRole(shared.RoleAdmin)).Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	req.ActorID = shared.ActorID(r.Context())
	sale, err := h.service.CreateSale(r.Context(), req)
	if err != nil {
		h.fail(w, "create sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{ListFilters: shared.ParseListFilters(q)}
	var err error
	if filter.From, err = ParseDate(q.Get("from"), false); err != nil {
		httpx.RespondError(w, shared.NewValidationError("from", err.Error()))
		return
	}
	if filter.To, err = ParseDate(q.Get("to"), true); err != nil {
		httpx.RespondError(w, shared.NewValidationError("to", err.Error()))
		return
	}
	if filter.CustomerID, err = shared.ParseOptionalID(q, "customer_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.EmployeeID, err = shared.ParseOptionalID(q, "employee_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}

	rows, total, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.fail(w, "list sales", err)
		return
	}
	if rows == nil {
		rows = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": shared.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteSale(r.Context(), id, shared.ActorID(r.Context())); err != nil {
		h.fail(w, "delete sale", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.UserSafeMessage(err) == "internal error" {
		h.logger.Error("sales "+op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// ParseDate accepts YYYY-MM-DD or RFC3339. With endOfDay a bare date becomes
// the start of the following day so it can be used as an exclusive bound.
func ParseDate(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

var errInvalidDate = errors.New("must be YYYY-MM-DD or RFC3339")
