package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/platform/httpx"
	"github.com/comal-pos/comal-pos/internal/shared"
)

// Handler wires HTTP endpoints for the orders module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the orders handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/bulk-delete", h.bulkDelete)
	r.Get("/{id}", h.show)
	r.Delete("/{id}", h.remove)
	r.Post("/{id}/items", h.addItems)
	r.Delete("/{id}/items/{itemID}", h.removeItem)
	r.Post("/{id}/close", h.close)
	r.Get("/{id}/ticket", h.ticket)
}

type itemRequest struct {
	ProductID    int64  `json:"product_id" validate:"required,gt=0"`
	Qty          int    `json:"qty" validate:"required,gt=0"`
	ProteinID    *int64 `json:"protein_id"`
	ProteinLabel string `json:"protein"`
	Without      string `json:"without"`
	Note         string `json:"note"`
}

type createOrderRequest struct {
	Origin      string        `json:"origin" validate:"required"`
	Waiter      string        `json:"waiter"`
	Phone       string        `json:"phone"`
	PayMethod   string        `json:"pay_method"`
	DeliveryFee string        `json:"delivery_fee"`
	Items       []itemRequest `json:"items" validate:"required,min=1,dive"`
}

func toInputs(reqs []itemRequest) []ItemInput {
	inputs := make([]ItemInput, 0, len(reqs))
	for _, it := range reqs {
		inputs = append(inputs, ItemInput{
			ProductID:    it.ProductID,
			Qty:          it.Qty,
			ProteinID:    it.ProteinID,
			ProteinLabel: it.ProteinLabel,
			Without:      it.Without,
			Note:         it.Note,
		})
	}
	return inputs
}

func orderJSON(o Order) map[string]any {
	return map[string]any{
		"id":           o.ID,
		"code":         o.Code,
		"date":         o.Date.Format(time.RFC3339),
		"origin":       o.Origin,
		"waiter":       o.Waiter,
		"phone":        o.Phone,
		"pay_method":   o.PayMethod,
		"total":        o.Total.String(),
		"delivery_fee": o.DeliveryFee.String(),
		"net":          o.Net.String(),
		"status":       o.Status,
	}
}

func itemsJSON(items []Item) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"id":         it.ID,
			"product_id": it.ProductID,
			"product":    it.ProductName,
			"protein_id": it.ProteinID,
			"protein":    it.ProteinLabel,
			"without":    it.Without,
			"note":       it.Note,
			"qty":        it.Qty,
			"unit_price": it.UnitPrice.String(),
			"subtotal":   it.Subtotal.String(),
		})
	}
	return out
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	fee := decimal.Zero
	if req.DeliveryFee != "" {
		var err error
		if fee, err = decimal.NewFromString(req.DeliveryFee); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "delivery_fee must be a decimal")
			return
		}
	}
	o, err := h.service.Create(r.Context(), Draft{
		Origin:      req.Origin,
		Waiter:      req.Waiter,
		Phone:       req.Phone,
		PayMethod:   req.PayMethod,
		DeliveryFee: fee,
		Items:       toInputs(req.Items),
	})
	if err != nil {
		if errors.Is(err, ErrNoItems) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("create order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orderJSON(o))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != StatusOpen && status != StatusClosed {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "status must be abierto or cerrado")
		return
	}
	list, err := h.service.List(r.Context(), status)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(list))
	for _, o := range list {
		out = append(out, orderJSON(o))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	o, items, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondOrderError(w, err, id)
		return
	}
	body := orderJSON(o)
	body["items"] = itemsJSON(items)
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) addItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req struct {
		Items []itemRequest `json:"items" validate:"required,min=1,dive"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	o, err := h.service.AddItems(r.Context(), id, toInputs(req.Items))
	if err != nil {
		if errors.Is(err, ErrNoItems) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.respondOrderError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, orderJSON(o))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	o, err := h.service.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.respondOrderError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, orderJSON(o))
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	res, err := h.service.Close(r.Context(), id)
	if err != nil {
		h.respondOrderError(w, err, id)
		return
	}
	body := orderJSON(res.Order)
	body["movements"] = res.MovementsAdded
	if res.PointsEarned > 0 {
		body["loyalty"] = map[string]any{
			"points_earned": res.PointsEarned,
			"balance":       res.LoyaltyBalance,
		}
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondOrderError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs     []int64 `json:"ids"`
	AllOpen bool    `json:"all_open"`
}

func (h *Handler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	res, err := h.service.BulkDelete(r.Context(), BulkDeleteInput{IDs: req.IDs, AllOpen: req.AllOpen})
	if err != nil {
		if errors.Is(err, ErrNoSelection) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("bulk delete failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders_deleted":     res.OrdersDeleted,
		"movements_reversed": res.MovementsReversed,
	})
}

func (h *Handler) ticket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	o, items, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondOrderError(w, err, id)
		return
	}
	text := RenderTicket(o, items)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"text":         text,
		"whatsapp_url": WhatsAppLink(o.Phone, text),
	})
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondOrderError(w http.ResponseWriter, err error, orderID int64) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrOrderClosed):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("orders request failed", slog.Any("error", err), slog.Int64("order_id", orderID))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
