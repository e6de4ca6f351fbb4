package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/salonpos/salonpos/internal/platform/httpx"
	"github.com/salonpos/salonpos/internal/rbac"
	"github.com/salonpos/salonpos/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/records", h.handleRecordMovement)
	r.Get("/items/{id}/records", h.handleListRecords)
	r.Get("/items/{id}/cogs", h.handleCOGS)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Put("/records/{id}", h.handleUpdateRecord)
		r.Delete("/records/{id}", h.handleDeleteRecord)
		r.Post("/items/{id}/reconcile", h.handleReconcile)
	})
}

type movementRequest struct {
	ItemID   int64            `json:"item_id" validate:"required,gt=0"`
	Type     string           `json:"type" validate:"required"`
	Quantity *int64           `json:"quantity" validate:"required,gte=0"`
	UnitCost *decimal.Decimal `json:"unit_cost" validate:"required"`
	Date     *time.Time       `json:"date"`
	Note     string           `json:"note" validate:"max=500"`
}

func (req movementRequest) movement() (MovementType, int64, decimal.Decimal, time.Time, error) {
	t, err := ParseMovementType(req.Type)
	if err != nil {
		return "", 0, decimal.Zero, time.Time{}, err
	}
	var date time.Time
	if req.Date != nil {
		date = req.Date.UTC()
	}
	return t, *req.Quantity, *req.UnitCost, date, nil
}

func (h *Handler) handleRecordMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, qty, cost, date, err := req.movement()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.RecordMovement(r.Context(), MovementInput{
		ItemID:   req.ItemID,
		Type:     t,
		Quantity: qty,
		UnitCost: cost,
		Date:     date,
		Note:     req.Note,
		ActorID:  shared.ActorID(r.Context()),
	})
	if err != nil {
		h.fail(w, "record movement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, qty, cost, date, err := req.movement()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.UpdateRecord(r.Context(), id, UpdateRecordInput{
		ItemID:   req.ItemID,
		Type:     t,
		Quantity: qty,
		UnitCost: cost,
		Date:     date,
		Note:     req.Note,
		ActorID:  shared.ActorID(r.Context()),
	})
	if err != nil {
		h.fail(w, "update record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.DeleteRecord(r.Context(), id, shared.ActorID(r.Context()))
	if err != nil {
		h.fail(w, "delete record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item": item})
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.service.ListRecordsByItem(r.Context(), id)
	if err != nil {
		h.fail(w, "list records", err)
		return
	}
	if records == nil {
		records = []Record{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": records})
}

func (h *Handler) handleCOGS(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	qty, err := strconv.ParseInt(r.URL.Query().Get("quantity"), 10, 64)
	if err != nil {
		httpx.RespondError(w, ErrInvalidQuantity)
		return
	}
	cogs, err := h.service.CalculateCOGS(r.Context(), id, qty)
	if err != nil {
		h.fail(w, "calculate cogs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cogs)
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Reconcile(r.Context(), id)
	if err != nil {
		h.fail(w, "reconcile item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.UserSafeMessage(err) == "internal error" {
		h.logger.Error("inventory "+op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
