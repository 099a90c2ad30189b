package purchases

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the purchases module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the purchases handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.register)
}

type registerPurchaseRequest struct {
	Date         string `json:"date"`
	Place        string `json:"place"`
	Concept      string `json:"concept" validate:"required"`
	Qty          string `json:"qty" validate:"required"`
	Unit         string `json:"unit"`
	Cost         string `json:"cost" validate:"required"`
	CostType     string `json:"cost_type"`
	Note         string `json:"note"`
	IsIngredient bool   `json:"is_ingredient"`
	IngredientID *int64 `json:"ingredient_id"`
	BaseQty      string `json:"base_qty"`
	BaseUnit     string `json:"base_unit"`
	UnitCost     string `json:"unit_cost"`
}

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerPurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	p := Purchase{
		Place:        req.Place,
		Concept:      req.Concept,
		Unit:         req.Unit,
		CostType:     req.CostType,
		Note:         req.Note,
		IsIngredient: req.IsIngredient,
		IngredientID: req.IngredientID,
	}
	var err error
	if req.Date != "" {
		if p.Date, err = time.Parse("2006-01-02", req.Date); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
	}
	if p.Qty, err = decimal.NewFromString(req.Qty); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "qty must be a decimal")
		return
	}
	if p.Cost, err = decimal.NewFromString(req.Cost); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cost must be a decimal")
		return
	}
	if req.BaseQty != "" {
		d, err := decimal.NewFromString(req.BaseQty)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "base_qty must be a decimal")
			return
		}
		p.BaseQty = &d
	}
	if req.UnitCost != "" {
		d, err := decimal.NewFromString(req.UnitCost)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unit_cost must be a decimal")
			return
		}
		p.UnitCost = &d
	}
	if req.BaseUnit != "" {
		p.BaseUnit = &req.BaseUnit
	}

	saved, err := h.service.Register(r.Context(), p)
	if err != nil {
		if errors.Is(err, ErrInvalidPurchase) || errors.Is(err, ErrIncompleteIngredient) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("register purchase", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, purchaseJSON(saved))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month != "" && !monthPattern.MatchString(month) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "month must be YYYY-MM")
		return
	}
	list, err := h.service.List(r.Context(), month)
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(list))
	for _, p := range list {
		out = append(out, purchaseJSON(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func purchaseJSON(p Purchase) map[string]any {
	body := map[string]any{
		"id":            p.ID,
		"date":          p.Date.Format("2006-01-02"),
		"place":         p.Place,
		"concept":       p.Concept,
		"qty":           p.Qty.String(),
		"unit":          p.Unit,
		"cost":          p.Cost.String(),
		"cost_type":     p.CostType,
		"note":          p.Note,
		"is_ingredient": p.IsIngredient,
	}
	if p.IngredientID != nil {
		body["ingredient_id"] = *p.IngredientID
	}
	if p.BaseQty != nil {
		body["base_qty"] = p.BaseQty.String()
	}
	if p.BaseUnit != nil {
		body["base_unit"] = *p.BaseUnit
	}
	if p.UnitCost != nil {
		body["unit_cost"] = p.UnitCost.String()
	}
	return body
}
