package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/storefront-backend/api/controllers/admin"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Dependencies carries everything the router hands to controllers.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore

	Products products.Service
	Orders   orders.Service
	Users    users.Service
	Checkout controllers.OrderPlacer
	Ledger   admincontrollers.StockAdjuster
	Overview interface {
		admincontrollers.StatsProvider
		admincontrollers.LowStockReporter
	}

	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	idem := middleware.Idempotency(deps.Idempotency, cfg.Idempotency.TTL, logg)
	criticalIdem := middleware.Idempotency(deps.Idempotency, middleware.CriticalIdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	if cfg.Metrics.Enabled && deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Products, logg))
			r.Get("/categories", controllers.ProductCategories(deps.Products, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.Products, logg))
		})
		r.With(criticalIdem).Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.CustomerOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminGuard(cfg.Admin.Token, logg))

		r.Get("/stats", admincontrollers.Stats(deps.Overview, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", admincontrollers.CreateProduct(deps.Products, logg))
			r.Get("/low-stock", admincontrollers.LowStock(deps.Overview, logg))
			r.Patch("/{productId}", admincontrollers.UpdateProduct(deps.Products, logg))
			r.Delete("/{productId}", admincontrollers.DeleteProduct(deps.Products, logg))
			r.With(idem).Post("/{productId}/stock", admincontrollers.AdjustStock(deps.Ledger, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", admincontrollers.ListOrders(deps.Orders, logg))
			r.With(idem).Patch("/{orderId}/status", admincontrollers.ChangeOrderStatus(deps.Orders, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", admincontrollers.ListUsers(deps.Users, logg))
			r.Patch("/{userId}/role", admincontrollers.ChangeUserRole(deps.Users, logg))
			r.Delete("/{userId}", admincontrollers.DeleteUser(deps.Users, logg))
		})
	})

	return r
}
