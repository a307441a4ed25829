package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/voicetransit/booking-backend/internal/cache"
	"github.com/voicetransit/booking-backend/internal/config"
	"github.com/voicetransit/booking-backend/internal/database"
	"github.com/voicetransit/booking-backend/internal/handlers"
	"github.com/voicetransit/booking-backend/internal/ledger"
	"github.com/voicetransit/booking-backend/internal/middleware"
	"github.com/voicetransit/booking-backend/internal/models"
	"github.com/voicetransit/booking-backend/internal/provider"
	"github.com/voicetransit/booking-backend/internal/services"
	"github.com/voicetransit/booking-backend/pkg/payment"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting VoiceTransit Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection (booking store)
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	bookingRepository := database.NewBookingRepository(db)

	// Hold ledger with background reaper
	holdLedger := ledger.NewHoldLedger(cfg.Ledger.ReapInterval, logger)
	holdLedger.StartReaper()
	defer holdLedger.StopReaper()

	// Availability cache
	availCache := cache.NewAvailabilityCache()

	// Provider adapters, one per domain
	logger.Infof("Initializing provider adapters (mode: %s)...", cfg.Providers.Mode)
	registry := provider.NewRegistry(
		buildAdapter(models.DomainRail, cfg, availCache, holdLedger, logger),
		buildAdapter(models.DomainRoad, cfg, availCache, holdLedger, logger),
		buildAdapter(models.DomainCinema, cfg, availCache, holdLedger, logger),
	)

	// Payment gateway
	var gateway payment.Gateway
	if cfg.Payment.Mode == "http" {
		logger.Infof("Using hosted payment gateway (%s)", cfg.Payment.Environment)
		gateway = payment.NewHTTPGateway(payment.HTTPGatewayConfig{
			Environment:    cfg.Payment.Environment,
			BaseURL:        cfg.Payment.BaseURL,
			MerchantKey:    cfg.Payment.MerchantKey,
			MerchantSecret: cfg.Payment.MerchantSecret,
			Timeout:        cfg.Payment.Timeout,
		}, logger)
	} else {
		logger.Info("Using in-memory dev payment gateway")
		gateway = payment.NewDevGateway()
	}

	// Core services
	logger.Info("Initializing services...")
	coordinator := services.NewPaymentCoordinator(gateway, cfg.Orchestrator, cfg.Payment.Currency, logger)
	orchestrator := services.NewOrchestratorService(registry, coordinator, bookingRepository, cfg.Orchestrator, logger)

	sweeper := services.NewSweeperService(orchestrator, cfg.Orchestrator.SweepInterval, logger)
	sweeper.Start()
	defer sweeper.Stop()

	maintenance := services.NewMaintenanceService(orchestrator, availCache, holdLedger, registry, logger)
	if err := maintenance.Start(); err != nil {
		logger.Fatalf("Failed to start maintenance service: %v", err)
	}

	// Handlers
	attemptHandler := handlers.NewAttemptHandler(orchestrator, logger)
	healthHandler := handlers.NewHealthHandler(db, registry)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		attempts := v1.Group("/attempts")
		{
			attempts.POST("", attemptHandler.SubmitIntent)
			attempts.GET("/:attempt_id", attemptHandler.GetAttempt)
			attempts.POST("/:attempt_id/slots", attemptHandler.ProvideSlots)
			attempts.POST("/:attempt_id/select", attemptHandler.SelectOffer)
			attempts.POST("/:attempt_id/pay", attemptHandler.SubmitPayment)
			attempts.POST("/:attempt_id/cancel", attemptHandler.Cancel)
		}

		v1.GET("/bookings/:booking_id", attemptHandler.GetBooking)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	maintenance.Stop()
	sweeper.Stop()
	orchestrator.Stop()
	holdLedger.StopReaper()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// buildAdapter wires one provider domain: its upstream client for the
// configured mode, rate limiter, circuit breaker, shared cache and ledger.
func buildAdapter(
	domain models.Domain,
	cfg *config.Config,
	availCache *cache.AvailabilityCache,
	holdLedger *ledger.HoldLedger,
	logger *logrus.Logger,
) *provider.Adapter {
	var providerCfg config.ProviderConfig
	var upstream provider.Upstream

	switch domain {
	case models.DomainRail:
		providerCfg = cfg.Providers.Rail
		if cfg.Providers.Mode == "http" {
			upstream = provider.NewRailLinkUpstream(providerCfg, logger)
		} else {
			upstream = seededStatic(models.DomainRail, true, "RLY")
		}
	case models.DomainRoad:
		providerCfg = cfg.Providers.Road
		if cfg.Providers.Mode == "http" {
			upstream = provider.NewRoadWaysUpstream(providerCfg, logger)
		} else {
			upstream = seededStatic(models.DomainRoad, true, "RWB")
		}
	case models.DomainCinema:
		providerCfg = cfg.Providers.Cinema
		if cfg.Providers.Mode == "http" {
			upstream = provider.NewCineSeatUpstream(providerCfg, logger)
		} else {
			upstream = seededStatic(models.DomainCinema, false, "CIN")
		}
	}

	return provider.NewAdapter(domain, upstream, availCache, holdLedger, provider.AdapterConfig{
		CacheTTL:         cfg.Cache.TTLForDomain(string(domain)),
		HoldTTL:          cfg.Ledger.HoldTTL,
		UpstreamTimeout:  providerCfg.Timeout,
		RatePerSecond:    providerCfg.RatePerSecond,
		RateBurst:        providerCfg.RateBurst,
		BreakerThreshold: cfg.Breaker.FailureThreshold,
		BreakerCoolDown:  cfg.Breaker.CoolDown,
	}, logger)
}

// seededStatic builds a static upstream with a small inventory so the full
// flow works out of the box in development.
func seededStatic(domain models.Domain, supportsHold bool, codePrefix string) *provider.StaticUpstream {
	upstream := provider.NewStaticUpstream(domain, supportsHold, codePrefix)

	now := time.Now()
	switch domain {
	case models.DomainRail:
		upstream.Seed(models.Offer{
			OfferID:      "IC402-1A",
			Description:  "IC-402 colombo → kandy intercity express",
			Price:        1200,
			Currency:     "LKR",
			CapacityUnit: "IC402-COACH1-A",
			ProviderRef:  "IC402",
			DepartsAt:    now.Add(6 * time.Hour),
		})
		upstream.Seed(models.Offer{
			OfferID:      "IC402-2B",
			Description:  "IC-402 colombo → kandy intercity express",
			Price:        950,
			Currency:     "LKR",
			CapacityUnit: "IC402-COACH2-B",
			ProviderRef:  "IC402",
			DepartsAt:    now.Add(6 * time.Hour),
		})
	case models.DomainRoad:
		upstream.Seed(models.Offer{
			OfferID:      "EX1-22",
			Description:  "expressway luxury colombo → galle",
			Price:        800,
			Currency:     "LKR",
			CapacityUnit: "EX1-BLOCK22",
			ProviderRef:  "EX1",
			DepartsAt:    now.Add(3 * time.Hour),
		})
	case models.DomainCinema:
		upstream.Seed(models.Offer{
			OfferID:      "SHOW9-GOLD",
			Description:  "midnight premiere at liberty cinema",
			Price:        1500,
			Currency:     "LKR",
			CapacityUnit: "SHOW9/GOLD",
			ProviderRef:  "SHOW9",
			DepartsAt:    now.Add(9 * time.Hour),
		})
	}
	return upstream
}
