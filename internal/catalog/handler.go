package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the catalog module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ingredients", h.listIngredients)
	r.Post("/ingredients", h.createIngredient)
	r.Post("/ingredients/{id}/deactivate", h.deactivateIngredient)

	r.Get("/dishes", h.listDishes)
	r.Post("/dishes", h.createDish)
	r.Get("/dishes/{id}/recipe", h.getRecipe)
	r.Put("/dishes/{id}/recipe", h.saveRecipe)

	r.Get("/proteins", h.listProteins)
	r.Post("/proteins", h.createProtein)

	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
}

type createIngredientRequest struct {
	Name         string `json:"name" validate:"required"`
	BaseUnit     string `json:"base_unit" validate:"required"`
	SpoilagePct  string `json:"spoilage_pct"`
	DeductsStock *bool  `json:"deducts_stock"`
}

func (h *Handler) createIngredient(w http.ResponseWriter, r *http.Request) {
	var req createIngredientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	spoilage := decimal.Zero
	if req.SpoilagePct != "" {
		var err error
		if spoilage, err = decimal.NewFromString(req.SpoilagePct); err != nil || spoilage.IsNegative() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "spoilage_pct must be a non-negative decimal")
			return
		}
	}
	deducts := true
	if req.DeductsStock != nil {
		deducts = *req.DeductsStock
	}
	ing, err := h.service.CreateIngredient(r.Context(), Ingredient{
		Name:         req.Name,
		BaseUnit:     req.BaseUnit,
		SpoilagePct:  spoilage,
		DeductsStock: deducts,
	})
	if err != nil {
		h.logger.Error("create ingredient", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ingredientResponse(ing))
}

func (h *Handler) listIngredients(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "1"
	ingredients, err := h.service.ListIngredients(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list ingredients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(ingredients))
	for _, ing := range ingredients {
		out = append(out, ingredientResponse(ing))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) deactivateIngredient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ingredient id")
		return
	}
	if err := h.service.DeactivateIngredient(r.Context(), id); err != nil {
		if errors.Is(err, ErrIngredientNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("deactivate ingredient", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "active": false})
}

type createDishRequest struct {
	Name       string `json:"name" validate:"required"`
	ProteinQty string `json:"protein_qty"`
	Price      string `json:"price"`
}

func (h *Handler) createDish(w http.ResponseWriter, r *http.Request) {
	var req createDishRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	dish := Dish{Name: req.Name}
	if req.ProteinQty != "" {
		qty, err := decimal.NewFromString(req.ProteinQty)
		if err != nil || qty.IsNegative() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "protein_qty must be a non-negative decimal")
			return
		}
		dish.ProteinQty = qty
	}
	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "price must be a decimal")
			return
		}
		dish.Price = &price
	}
	created, err := h.service.CreateDish(r.Context(), dish)
	if err != nil {
		h.logger.Error("create dish", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dishResponse(created))
}

func (h *Handler) listDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.service.ListDishes(r.Context())
	if err != nil {
		h.logger.Error("list dishes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(dishes))
	for _, d := range dishes {
		out = append(out, dishResponse(d))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type recipeLineRequest struct {
	IngredientID   int64  `json:"ingredient_id" validate:"required,gt=0"`
	Qty            string `json:"qty" validate:"required"`
	ManualPrice    bool   `json:"manual_price"`
	ManualUnitCost string `json:"manual_unit_cost"`
}

type saveRecipeRequest struct {
	Lines []recipeLineRequest `json:"lines" validate:"required,dive"`
}

func (h *Handler) saveRecipe(w http.ResponseWriter, r *http.Request) {
	dishID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid dish id")
		return
	}
	var req saveRecipeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	lines := make([]RecipeLineInput, 0, len(req.Lines))
	for _, lr := range req.Lines {
		qty, err := decimal.NewFromString(lr.Qty)
		if err != nil {
			// Unparseable rows are dropped, not fatal; the service rejects the
			// save only when nothing valid remains.
			continue
		}
		line := RecipeLineInput{IngredientID: lr.IngredientID, Qty: qty, ManualPrice: lr.ManualPrice}
		if lr.ManualUnitCost != "" {
			cost, err := decimal.NewFromString(lr.ManualUnitCost)
			if err != nil {
				continue
			}
			line.ManualUnitCost = &cost
		}
		lines = append(lines, line)
	}

	if err := h.service.SaveRecipe(r.Context(), dishID, lines); err != nil {
		switch {
		case errors.Is(err, ErrDishNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrEmptyRecipe):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		default:
			h.logger.Error("save recipe", slog.Any("error", err), slog.Int64("dish_id", dishID))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"dish_id": dishID, "saved": true})
}

func (h *Handler) getRecipe(w http.ResponseWriter, r *http.Request) {
	dishID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid dish id")
		return
	}
	lines, err := h.service.GetRecipe(r.Context(), dishID)
	if err != nil {
		if errors.Is(err, ErrDishNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get recipe", slog.Any("error", err), slog.Int64("dish_id", dishID))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		entry := map[string]any{
			"ingredient_id": line.IngredientID,
			"qty":           line.Qty.String(),
			"manual_price":  line.ManualPrice,
		}
		if line.ManualUnitCost != nil {
			entry["manual_unit_cost"] = line.ManualUnitCost.String()
		}
		out = append(out, entry)
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createProteinRequest struct {
	Name         string `json:"name" validate:"required"`
	IngredientID *int64 `json:"ingredient_id"`
}

func (h *Handler) createProtein(w http.ResponseWriter, r *http.Request) {
	var req createProteinRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.CreateProtein(r.Context(), Protein{Name: req.Name, IngredientID: req.IngredientID})
	if err != nil {
		if errors.Is(err, ErrIngredientNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("create protein", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": p.ID, "name": p.Name, "ingredient_id": p.IngredientID})
}

func (h *Handler) listProteins(w http.ResponseWriter, r *http.Request) {
	proteins, err := h.service.ListProteins(r.Context())
	if err != nil {
		h.logger.Error("list proteins", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, proteins)
}

type createProductRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required"`
	Cost     string `json:"cost"`
	Price    string `json:"price" validate:"required"`
	DishID   *int64 `json:"dish_id"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "price must be a decimal")
		return
	}
	cost := decimal.Zero
	if req.Cost != "" {
		if cost, err = decimal.NewFromString(req.Cost); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cost must be a decimal")
			return
		}
	}
	p, err := h.service.CreateProduct(r.Context(), Product{
		Name:     req.Name,
		Category: req.Category,
		Cost:     cost,
		Price:    price,
		DishID:   req.DishID,
	})
	if err != nil {
		if errors.Is(err, ErrDishNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, productResponse(p))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("all") != "1")
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func ingredientResponse(ing Ingredient) map[string]any {
	return map[string]any{
		"id":            ing.ID,
		"name":          ing.Name,
		"base_unit":     ing.BaseUnit,
		"spoilage_pct":  ing.SpoilagePct.String(),
		"active":        ing.Active,
		"deducts_stock": ing.DeductsStock,
	}
}

func dishResponse(d Dish) map[string]any {
	out := map[string]any{
		"id":          d.ID,
		"name":        d.Name,
		"protein_qty": d.ProteinQty.String(),
	}
	if d.Price != nil {
		out["price"] = d.Price.String()
	}
	return out
}

func productResponse(p Product) map[string]any {
	return map[string]any{
		"id":       p.ID,
		"name":     p.Name,
		"category": p.Category,
		"cost":     p.Cost.String(),
		"price":    p.Price.String(),
		"active":   p.Active,
		"dish_id":  p.DishID,
	}
}
