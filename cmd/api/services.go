package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/stockdesk-backend/api/routes"
	"github.com/angelmondragon/stockdesk-backend/internal/alerts"
	"github.com/angelmondragon/stockdesk-backend/internal/clients"
	"github.com/angelmondragon/stockdesk-backend/internal/deals"
	"github.com/angelmondragon/stockdesk-backend/internal/inventory"
	"github.com/angelmondragon/stockdesk-backend/internal/orders"
	"github.com/angelmondragon/stockdesk-backend/internal/payments"
	productsvc "github.com/angelmondragon/stockdesk-backend/internal/products"
	"github.com/angelmondragon/stockdesk-backend/internal/returns"
	"github.com/angelmondragon/stockdesk-backend/pkg/config"
	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
	"github.com/angelmondragon/stockdesk-backend/pkg/metrics"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	pkgredis "github.com/angelmondragon/stockdesk-backend/pkg/redis"
)

// buildDependencies constructs every domain service the router needs. All
// writes share one outbox emitter and one stock ledger.
func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *pkgredis.Client, reg *prometheus.Registry) (routes.Dependencies, error) {
	gormDB := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)
	stockMetrics := metrics.NewStockMetrics(reg)
	ledger := inventory.NewLedger(stockMetrics)

	alertSvc, err := alerts.NewService(alerts.ServiceParams{
		Repo:             alerts.NewRepository(gormDB),
		DB:               dbClient,
		Outbox:           emitter,
		Logger:           logg,
		DefaultThreshold: cfg.Alerts.DefaultLowStockThreshold,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	productSvc, err := productsvc.NewService(productsvc.ServiceParams{
		Repo:             productsvc.NewRepository(gormDB),
		DB:               dbClient,
		Ledger:           ledger,
		Alerts:           alertSvc,
		Outbox:           emitter,
		DefaultThreshold: cfg.Alerts.DefaultLowStockThreshold,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	clientSvc, err := clients.NewService(clients.ServiceParams{
		Repo: clients.NewRepository(gormDB),
		DB:   dbClient,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	orderRepo := orders.NewRepository(gormDB)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:   orderRepo,
		Tx:     dbClient,
		Ledger: ledger,
		Alerts: alertSvc,
		Outbox: emitter,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repo:   payments.NewRepository(gormDB),
		Orders: orderRepo,
		Tx:     dbClient,
		Outbox: emitter,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	returnSvc, err := returns.NewService(returns.ServiceParams{
		Repo:   returns.NewRepository(gormDB),
		Orders: orderRepo,
		DB:     dbClient,
		Ledger: ledger,
		Alerts: alertSvc,
		Outbox: emitter,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	dealSvc, err := deals.NewService(deals.ServiceParams{
		Repo:    deals.NewRepository(gormDB),
		DB:      dbClient,
		Orders:  orderSvc,
		Outbox:  emitter,
		Cache:   redisClient,
		Limiter: redisClient,
		Metrics: stockMetrics,
		Logger:  logg,
		Config:  cfg.Deals,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		Gatherer:    reg,
		Products:    productSvc,
		Clients:     clientSvc,
		Orders:      orderSvc,
		Payments:    paymentSvc,
		Returns:     returnSvc,
		Deals:       dealSvc,
		Alerts:      alertSvc,
	}, nil
}
