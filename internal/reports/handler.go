package reports

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/salonpos/salonpos/internal/platform/httpx"
	"github.com/salonpos/salonpos/internal/rbac"
	"github.com/salonpos/salonpos/internal/shared"
)

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountRoutes registers report routes; every report is admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Get("/sales-summary", h.handleSalesSummary)
		r.Get("/employee-commissions", h.handleEmployeeCommissions)
		r.Get("/inventory-valuation", h.handleInventoryValuation)
		r.Get("/expenses", h.handleExpenses)
		r.Get("/profit-and-loss", h.handleProfitAndLoss)
		r.Get("/daily-sales", h.handleDailySales)
		r.Get("/daily-sales.xlsx", h.handleDailySalesExport)
	})
}

// parseRange reads from/to as YYYY-MM-DD; to is inclusive on the wire. Missing
// bounds default to month to date.
func (h *Handler) parseRange(r *http.Request) (Range, error) {
	rng := MonthToDate(h.now())
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return Range{}, shared.NewValidationError("from", "must be YYYY-MM-DD")
		}
		rng.From = from
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return Range{}, shared.NewValidationError("to", "must be YYYY-MM-DD")
		}
		rng.To = to.AddDate(0, 0, 1)
	}
	return rng, nil
}

func (h *Handler) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.SalesSummary(r.Context(), rng)
	h.respond(w, "sales summary", out, err)
}

func (h *Handler) handleEmployeeCommissions(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.EmployeeCommissions(r.Context(), rng)
	h.respond(w, "employee commissions", map[string]any{"range": rng, "data": rows}, err)
}

func (h *Handler) handleInventoryValuation(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.InventoryValuation(r.Context())
	h.respond(w, "inventory valuation", out, err)
}

func (h *Handler) handleExpenses(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.ExpenseSummary(r.Context(), rng)
	h.respond(w, "expense summary", out, err)
}

func (h *Handler) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.ProfitAndLoss(r.Context(), rng)
	h.respond(w, "profit and loss", out, err)
}

func (h *Handler) handleDailySales(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.DailySales(r.Context(), rng)
	h.respond(w, "daily sales", map[string]any{"range": rng, "data": rows}, err)
}

func (h *Handler) handleDailySalesExport(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.DailySales(r.Context(), rng)
	if err != nil {
		h.respond(w, "daily sales export", nil, err)
		return
	}
	filename := "daily-sales-" + rng.From.Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", mime.TypeByExtension(".xlsx"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := WriteDailySalesXLSX(w, rng, rows); err != nil {
		h.logger.Error("daily sales export failed", slog.Any("error", err))
	}
}

func (h *Handler) respond(w http.ResponseWriter, op string, body any, err error) {
	if err != nil {
		if shared.UserSafeMessage(err) == "internal error" {
			h.logger.Error("report "+op+" failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, body)
}
