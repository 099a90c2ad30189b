package costing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comal-pos/comal-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for dish costing.
type Handler struct {
	logger     *slog.Logger
	calculator *Calculator
}

// NewHandler constructs the costing handler.
func NewHandler(logger *slog.Logger, calculator *Calculator) *Handler {
	return &Handler{logger: logger, calculator: calculator}
}

// MountRoutes registers costing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dishes/{id}", h.dishCost)
	r.Post("/recost", h.recost)
}

func (h *Handler) dishCost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid dish id")
		return
	}
	dc, err := h.calculator.CostOfDish(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrDishNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("cost of dish", slog.Any("error", err), slog.Int64("dish_id", id))
		httpx.RespondError(w, err)
		return
	}
	lines := make([]map[string]any, 0, len(dc.Lines))
	for _, lc := range dc.Lines {
		lines = append(lines, map[string]any{
			"ingredient_id": lc.IngredientID,
			"ingredient":    lc.IngredientName,
			"qty":           lc.Qty.String(),
			"effective_qty": lc.EffectiveQty.String(),
			"unit_cost":     lc.UnitCost.String(),
			"cost":          lc.Cost.String(),
			"source":        lc.Source,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"dish_id": dc.DishID,
		"total":   dc.Total.String(),
		"lines":   lines,
	})
}

func (h *Handler) recost(w http.ResponseWriter, r *http.Request) {
	updated, err := h.calculator.RecostAll(r.Context())
	if err != nil {
		h.logger.Error("recost dishes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"dishes_updated": updated})
}
