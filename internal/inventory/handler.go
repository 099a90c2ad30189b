package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/platform/httpx"
	"github.com/comal-pos/comal-pos/internal/shared"
)

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.listStock)
	r.Get("/stock/{id}", h.showStock)
	r.Post("/stock/entries", h.addStock)
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.ListStock(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("list stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(levels))
	for _, level := range levels {
		out = append(out, map[string]any{
			"ingredient_id": level.IngredientID,
			"name":          level.Name,
			"base_unit":     level.BaseUnit,
			"stock":         level.Stock.String(),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) showStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ingredient id")
		return
	}
	stock, err := h.service.CurrentStock(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrIngredientUnknown) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("current stock", slog.Any("error", err), slog.Int64("ingredient_id", id))
		httpx.RespondError(w, err)
		return
	}
	movements, err := h.service.Movements(r.Context(), id, 50)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err), slog.Int64("ingredient_id", id))
		httpx.RespondError(w, err)
		return
	}
	entries := make([]map[string]any, 0, len(movements))
	for _, m := range movements {
		entries = append(entries, map[string]any{
			"id":        m.ID,
			"qty":       m.Qty.String(),
			"type":      string(m.Type),
			"ref_table": m.RefTable,
			"ref_id":    m.RefID,
			"note":      m.Note,
			"at":        m.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"ingredient_id": id,
		"stock":         stock.String(),
		"movements":     entries,
	})
}

type addStockRequest struct {
	IngredientID int64  `json:"ingredient_id" validate:"required,gt=0"`
	Qty          string `json:"qty" validate:"required"`
	Note         string `json:"note"`
}

func (h *Handler) addStock(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "qty must be a decimal")
		return
	}
	level, err := h.service.AddStock(r.Context(), req.IngredientID, qty, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrIngredientInactive):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrIngredientUnknown):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		default:
			h.logger.Error("add stock", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"ingredient_id": level.IngredientID,
		"base_unit":     level.BaseUnit,
		"stock":         level.Stock.String(),
	})
}
