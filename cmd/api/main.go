package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transit-analytics-api/config"
	"transit-analytics-api/handlers"
	"transit-analytics-api/middleware"
	"transit-analytics-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get sql db handle: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Printf("db connected")

	// Cache is best-effort: a failed connection degrades to no-op.
	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, caching disabled: %v", err)
	}

	authService := services.NewAuthService(cfg.JWT)
	gateway := services.NewDemandDataService(db, time.Duration(cfg.Forecast.GatewayTimeoutSec)*time.Second)
	forecastService := services.NewForecastService(gateway, cache, cfg.Forecast)

	authHandler := handlers.NewAuthHandler(db, authService)
	demandHandler := handlers.NewDemandHandler(forecastService, gateway)
	forecastsHandler := handlers.NewForecastsHandler(db, cache)
	historyHandler := handlers.NewHistoryHandler(db, cache)
	routesHandler := handlers.NewRoutesHandler(db, cache)
	reportsHandler := handlers.NewReportsHandler(cache, forecastService)

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":      "UP",
			"message":     "Transit Analytics API is running",
			"model_state": forecastService.ModelState(),
		})
	})

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", middleware.RequireAuth(authService), authHandler.Me)

	api := v1.Group("")
	api.Use(middleware.RequireAuth(authService))

	demand := api.Group("/demand")
	demand.POST("/predict", demandHandler.Predict)
	demand.GET("/forecast/:route_id", demandHandler.GetForecast)
	demand.GET("/trends", demandHandler.GetTrends)
	demand.GET("/metrics/realtime", demandHandler.GetRealtimeMetrics)
	demand.POST("/train", middleware.RequireRole("admin"), demandHandler.Train)

	api.GET("/forecasts", forecastsHandler.GetStored)
	api.GET("/demand/history", historyHandler.GetRecent)
	api.GET("/routes", routesHandler.GetRoutes)
	api.GET("/routes/:route_id", routesHandler.GetRoute)

	reports := api.Group("/reports")
	reports.GET("/kpis", reportsHandler.GetKPIs)
	reports.POST("/generate", reportsHandler.GenerateReport)

	v1.GET("/ws/live", handlers.LiveWebSocket(cache, authService))

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
	cache.Close()
}
