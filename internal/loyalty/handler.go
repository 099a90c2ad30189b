package loyalty

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comal-pos/comal-pos/internal/platform/httpx"
)

// Handler wires the rewards endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the loyalty handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers loyalty routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balance", h.balance)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.BalanceByPhone(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPhone):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrCustomerNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		default:
			h.logger.Error("loyalty balance", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"goal":       progress.Goal,
		"balance":    progress.Balance,
		"remaining":  progress.Remaining,
		"redeemable": progress.Redeemable,
	})
}
