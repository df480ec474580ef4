package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/davortega/attar/internal"
	"github.com/davortega/attar/internal/cookie"
	"github.com/davortega/attar/internal/handler/api"
	"github.com/davortega/attar/internal/middleware"
	"github.com/davortega/attar/internal/postgres"
	"github.com/davortega/attar/internal/router"
	"github.com/davortega/attar/internal/routes"
	"github.com/davortega/attar/internal/service"
	"github.com/davortega/attar/internal/shipping"
	"github.com/davortega/attar/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for the application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Metrics
	httpMetrics := middleware.NewMetrics(cfg.MetricsNamespace)
	businessMetrics := telemetry.NewBusinessMetrics(cfg.MetricsNamespace)

	// Repositories and services
	cartStore := postgres.NewCartStore(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	catalogService := service.NewCatalogService(catalogRepo)

	shippingProvider := shipping.NewFlatRateProvider(cfg.Cart.ShippingAmount, cfg.Cart.FreeShippingOver)
	cartService := service.NewCartService(cartStore, catalogService, shippingProvider, businessMetrics)

	// Handlers
	cookies := cookie.NewConfig(cfg.Cart.SecureCookies)
	cartHandler := api.NewCartHandler(cartService, cookies, cfg.Cart.GuestCookieName)
	catalogHandler := api.NewCatalogHandler(catalogService, cfg.CurrencySymbol, businessMetrics)

	// Router with global middleware
	r := router.New(
		middleware.RequestID,
		middleware.ResolveOwner(cfg.Cart.GuestCookieName),
		middleware.WithRequestLogger(logger),
		middleware.Recover,
		httpMetrics.Middleware,
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		CartHandler:    cartHandler,
		CatalogHandler: catalogHandler,
		MetricsHandler: httpMetrics.Handler(),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "addr", addr, "env", cfg.Env)
	return http.ListenAndServe(addr, r)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
