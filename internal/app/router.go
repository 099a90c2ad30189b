package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/comal-pos/comal-pos/internal/catalog"
	"github.com/comal-pos/comal-pos/internal/costing"
	"github.com/comal-pos/comal-pos/internal/insights"
	"github.com/comal-pos/comal-pos/internal/inventory"
	"github.com/comal-pos/comal-pos/internal/loyalty"
	"github.com/comal-pos/comal-pos/internal/observability"
	"github.com/comal-pos/comal-pos/internal/orders"
	"github.com/comal-pos/comal-pos/internal/purchases"
	"github.com/comal-pos/comal-pos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	CatalogHandler   *catalog.Handler
	OrdersHandler    *orders.Handler
	InventoryHandler *inventory.Handler
	PurchasesHandler *purchases.Handler
	CostingHandler   *costing.Handler
	InsightsHandler  *insights.Handler
	LoyaltyHandler   *loyalty.Handler
	JobsHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Comal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.CatalogHandler != nil {
			r.Route("/catalog", params.CatalogHandler.MountRoutes)
		}
		if params.OrdersHandler != nil {
			r.Route("/orders", params.OrdersHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.PurchasesHandler != nil {
			r.Route("/purchases", params.PurchasesHandler.MountRoutes)
		}
		if params.CostingHandler != nil {
			r.Route("/costing", params.CostingHandler.MountRoutes)
		}
		if params.InsightsHandler != nil {
			r.Route("/insights", params.InsightsHandler.MountRoutes)
		}
		if params.LoyaltyHandler != nil {
			r.Route("/loyalty", params.LoyaltyHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
