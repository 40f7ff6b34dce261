package main

import (
	"time"

	"marketplace-service/internal/handler"
	"marketplace-service/internal/middleware"
	"marketplace-service/pkg/config"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/jwtutil"
	"marketplace-service/pkg/logger"
	"marketplace-service/pkg/metrics"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting marketplace service...", zap.String("environment", cfg.Server.Env))

	// Initialize JWT utilities
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utilities initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize HTTP metrics
	httpMetrics := metrics.NewHTTPMetrics("marketplace-service")
	log.Info("HTTP metrics initialized")

	// Initialize database and run migrations
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_host", cfg.DB.Host), zap.String("db_name", cfg.DB.DBName))

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(httpMetrics.Middleware())

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Process request
			err := next(c)

			// Log request details
			log := logger.FromContext(c)
			log.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Float64("duration_s", time.Since(start).Seconds()),
				zap.String("ip", c.RealIP()),
			)
			return err
		}
	})

	// Routes
	// Public routes that don't require authentication
	e.GET("/", handler.Hello)
	e.GET("/health", handler.Hello)

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(metrics.GetPrometheusHandler()))

	// API routes that require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Manufacturer registry (admin onboarding/edits, legacy lookup)
	api.POST("/manufacturers", handler.CreateManufacturer)
	api.GET("/manufacturers", handler.ListManufacturers)
	api.GET("/manufacturers/lookup", handler.LookupManufacturer)
	api.GET("/manufacturers/:id", handler.GetManufacturer)
	api.PUT("/manufacturers/:id", handler.UpdateManufacturer)

	// Authorization edges and tier commission rule sets require manufacturer context
	authorizations := api.Group("/authorizations")
	authorizations.Use(middleware.RequireManufacturerContext)
	authorizations.POST("", handler.GrantAuthorization)
	authorizations.GET("", handler.ListAuthorizations)
	authorizations.PUT("/:id", handler.UpdateAuthorization)
	authorizations.DELETE("/:id", handler.RevokeAuthorization)

	ruleSets := api.Group("/rule-sets")
	ruleSets.Use(middleware.RequireManufacturerContext)
	ruleSets.POST("", handler.CreateRuleSet)
	ruleSets.GET("", handler.ListRuleSets)

	// Pricing resolution (read-only, used at cart/checkout time)
	api.GET("/pricing/resolve", handler.ResolveEffectiveRate)

	// Order dispatch and manufacturer sub-order lifecycle
	api.POST("/orders/:id/dispatch", handler.DispatchOrder)
	api.GET("/manufacturer-orders", handler.ListManufacturerOrders)
	api.GET("/manufacturer-orders/:id", handler.GetManufacturerOrder)
	api.POST("/manufacturer-orders/:id/confirm", handler.ConfirmManufacturerOrder)
	api.PUT("/manufacturer-orders/:id/status", handler.UpdateManufacturerOrderStatus)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
