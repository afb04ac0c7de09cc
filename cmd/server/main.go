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
	"github.com/maikekai/surf-house-backend/internal/config"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/handlers"
	"github.com/maikekai/surf-house-backend/internal/middleware"
	"github.com/maikekai/surf-house-backend/internal/services"
	"github.com/maikekai/surf-house-backend/pkg/jwt"
	"github.com/maikekai/surf-house-backend/pkg/mailer"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Mai Ke Kai Surf House Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Repositories
	roomRepo := database.NewRoomRepository(db)
	blockRepo := database.NewBlockRepository(db)
	pricingRepo := database.NewPricingRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	userRepo := database.NewUserRepository(db)
	serviceRepo := database.NewServiceRepository(db)
	loyaltyRepo := database.NewLoyaltyRepository(db)
	auditRepo := database.NewPaymentAuditRepository(db, logger)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	mail := mailer.NewLogMailer(logger, fmt.Sprintf("%s <%s>", cfg.Mail.FromName, cfg.Mail.FromAddress))

	pricingService := services.NewPricingService(pricingRepo, roomRepo, logger)
	availabilityService := services.NewAvailabilityService(roomRepo, bookingRepo, blockRepo, logger)
	loyaltyService := services.NewLoyaltyService(loyaltyRepo, logger)
	bookingService := services.NewBookingService(
		bookingRepo,
		roomRepo,
		serviceRepo,
		userRepo,
		availabilityService,
		pricingService,
		loyaltyService,
		mail,
		logger,
	)

	gatewayService := services.NewPaymentGatewayService(&cfg.Payment, logger)
	if !gatewayService.IsConfigured() {
		logger.Warn("Payment gateway credentials missing, checkout sessions will fail")
	}
	paymentService := services.NewPaymentConfirmationService(bookingRepo, userRepo, auditRepo, gatewayService, mail, logger)

	adminAuthService := services.NewAdminAuthService(userRepo, jwtService, logger)
	inventoryService := services.NewInventoryAdminService(blockRepo, pricingRepo, roomRepo, logger)

	expirationService := services.NewExpirationService(bookingRepo, cfg.Sweeper.PendingTTL, logger)
	cronService := services.NewCronService(expirationService, cfg.Sweeper.Schedule, logger)
	if cfg.Sweeper.Enabled {
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	} else {
		logger.Warn("Booking expiration sweep disabled")
	}
	logger.Info("Services initialized")

	// Handlers
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	pricingHandler := handlers.NewPricingHandler(pricingService)
	catalogHandler := handlers.NewCatalogHandler(roomRepo, serviceRepo)
	bookingHandler := handlers.NewBookingHandler(bookingService, paymentService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	loyaltyHandler := handlers.NewLoyaltyHandler(loyaltyService)
	adminAuthHandler := handlers.NewAdminAuthHandler(adminAuthService)
	inventoryHandler := handlers.NewInventoryAdminHandler(inventoryService)
	opsHandler := handlers.NewOpsHandler(db, cronService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Sweep-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", opsHandler.Health)

	v1 := router.Group("/api/v1")
	{
		// Public guest surface
		v1.GET("/rooms", catalogHandler.ListRooms)
		v1.GET("/rooms/:id", catalogHandler.GetRoom)
		v1.GET("/services", catalogHandler.ListServices)
		v1.GET("/availability", availabilityHandler.GetAvailability)
		v1.GET("/availability/occupancy", availabilityHandler.GetMonthlyOccupancy)
		v1.GET("/pricing/quote", pricingHandler.QuoteStay)

		// Checkout works for anonymous guests and logged-in accounts alike
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.OptionalAuth(jwtService))
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.GET("/reference/:reference", bookingHandler.GetBookingByReference)
			bookings.POST("/:id/payment", bookingHandler.InitiatePayment)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
		}

		// Gateway callback, no auth: the gateway cannot carry our tokens
		v1.POST("/payments/webhook", paymentHandler.Webhook)

		// Guest loyalty surface (token required)
		loyalty := v1.Group("/loyalty")
		loyalty.Use(middleware.AuthMiddleware(jwtService))
		{
			loyalty.GET("/balance", loyaltyHandler.GetBalance)
			loyalty.GET("/history", loyaltyHandler.GetHistory)
			loyalty.POST("/redeem", loyaltyHandler.Redeem)
		}

		// Staff surface
		admin := v1.Group("/admin")
		{
			admin.POST("/auth/login", adminAuthHandler.Login)

			protected := admin.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			protected.Use(middleware.RequireRole("admin", "volunteer"))
			{
				protected.GET("/auth/me", adminAuthHandler.Me)

				protected.POST("/bookings/:id/confirm-payment", bookingHandler.ConfirmPayment)
				protected.POST("/bookings/:id/check-in", bookingHandler.CheckIn)
				protected.POST("/bookings/:id/check-out", bookingHandler.CheckOut)
				protected.POST("/bookings/:id/no-show", bookingHandler.MarkNoShow)
				protected.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)
				protected.POST("/payments/:booking_id/reconcile", paymentHandler.Reconcile)

				protected.POST("/blocks", inventoryHandler.CreateBlock)
				protected.DELETE("/blocks/:id", inventoryHandler.DeleteBlock)
				protected.GET("/rooms/:room_id/blocks", inventoryHandler.ListBlocks)
				protected.PUT("/pricing/seasons", inventoryHandler.UpsertSeasonPricing)
				protected.GET("/rooms/:room_id/pricing", inventoryHandler.ListSeasonPricing)
				protected.POST("/pricing/season-dates", inventoryHandler.CreateSeasonDate)
				protected.GET("/pricing/season-dates", inventoryHandler.ListSeasonDates)
			}
		}

		// Operational surface, guarded by the shared sweep secret
		ops := v1.Group("/ops")
		ops.Use(middleware.SweepSecret(cfg.Sweeper.SharedSecret))
		{
			ops.POST("/sweep/expire-bookings", opsHandler.RunExpirationSweep)
			ops.GET("/jobs", opsHandler.JobStatus)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cfg.Sweeper.Enabled {
		cronService.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger logs every HTTP request as structured JSON.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}
		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
			fields["role"] = userCtx.Role
		}

		entry := logger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed")
		}
	}
}
