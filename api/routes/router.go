package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stockdesk-backend/api/controllers"
	dealcontrollers "github.com/angelmondragon/stockdesk-backend/api/controllers/deals"
	ordercontrollers "github.com/angelmondragon/stockdesk-backend/api/controllers/orders"
	"github.com/angelmondragon/stockdesk-backend/api/middleware"
	"github.com/angelmondragon/stockdesk-backend/internal/alerts"
	"github.com/angelmondragon/stockdesk-backend/internal/clients"
	"github.com/angelmondragon/stockdesk-backend/internal/deals"
	"github.com/angelmondragon/stockdesk-backend/internal/orders"
	"github.com/angelmondragon/stockdesk-backend/internal/payments"
	productsvc "github.com/angelmondragon/stockdesk-backend/internal/products"
	"github.com/angelmondragon/stockdesk-backend/internal/returns"
	"github.com/angelmondragon/stockdesk-backend/pkg/config"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/stockdesk-backend/pkg/redis"
)

// Dependencies are the collaborators the router hands to controllers.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer

	Products productsvc.Service
	Clients  clients.Service
	Orders   orders.Service
	Payments payments.Service
	Returns  returns.Service
	Deals    deals.Service
	Alerts   alerts.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	idem := middleware.Idempotency(deps.Idempotency, cfg.Idempotency.TTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/portal", func(r chi.Router) {
			r.Use(middleware.PortalOpen(cfg.FeatureFlags.PortalOpen, logg))
			r.Use(middleware.RequireRole(logg, enums.RoleClient))

			r.Get("/deals", dealcontrollers.PortalList(deps.Deals, logg))
			r.Get("/deals/{dealId}/quote", dealcontrollers.PortalQuote(deps.Deals, logg))
			r.With(idem).Post("/deals/{dealId}/claim", dealcontrollers.PortalClaim(deps.Deals, logg))
			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleStaff))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListProducts(deps.Products, logg))
				r.With(idem).Post("/", controllers.CreateProduct(deps.Products, logg))
				r.Route("/{productId}", func(r chi.Router) {
					r.Get("/", controllers.GetProduct(deps.Products, logg))
					r.Patch("/", controllers.UpdateProduct(deps.Products, logg))
					r.Delete("/", controllers.DeleteProduct(deps.Products, logg))
					r.Get("/stock-adjustments", controllers.ListStockAdjustments(deps.Products, logg))
					r.With(idem).Post("/stock-adjustments", controllers.AdjustStock(deps.Products, logg))
				})
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", controllers.ListClients(deps.Clients, logg))
				r.With(idem).Post("/", controllers.CreateClient(deps.Clients, logg))
				r.Get("/{clientId}", controllers.GetClient(deps.Clients, logg))
				r.Patch("/{clientId}", controllers.UpdateClient(deps.Clients, logg))
				r.Delete("/{clientId}", controllers.DeleteClient(deps.Clients, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.With(idem).Post("/", ordercontrollers.Create(deps.Orders, logg))
				r.Route("/{orderId}", func(r chi.Router) {
					r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
					r.Delete("/", ordercontrollers.Delete(deps.Orders, logg))
					r.Put("/items", ordercontrollers.ReplaceItems(deps.Orders, logg))
					r.Post("/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
					r.Get("/payments", ordercontrollers.ListPayments(deps.Payments, logg))
					r.With(idem).Post("/payments", ordercontrollers.RecordPayment(deps.Payments, logg))
					r.Delete("/payments/{paymentId}", ordercontrollers.DeletePayment(deps.Payments, logg))
					r.Get("/returns", ordercontrollers.ListOrderReturns(deps.Returns, logg))
					r.With(idem).Post("/returns", ordercontrollers.CreateReturn(deps.Returns, logg))
				})
			})
			r.Get("/returns", ordercontrollers.ListReturns(deps.Returns, logg))

			r.Route("/deals", func(r chi.Router) {
				r.Get("/", dealcontrollers.List(deps.Deals, logg))
				r.With(idem).Post("/", dealcontrollers.Create(deps.Deals, logg))
				r.Get("/{dealId}", dealcontrollers.Detail(deps.Deals, logg))
				r.Post("/{dealId}/activate", dealcontrollers.Activate(deps.Deals, logg))
				r.Post("/{dealId}/expire", dealcontrollers.Expire(deps.Deals, logg))
				r.With(idem).Post("/{dealId}/claim", dealcontrollers.Claim(deps.Deals, logg))
			})

			r.Get("/alerts", controllers.ListAlerts(deps.Alerts, logg))
			r.Post("/alerts/{alertId}/acknowledge", controllers.AcknowledgeAlert(deps.Alerts, logg))
		})
	})

	return r
}
