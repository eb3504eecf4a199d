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

	"github.com/skyreserve/flight-booking-backend/internal/config"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/handlers"
	"github.com/skyreserve/flight-booking-backend/internal/middleware"
	"github.com/skyreserve/flight-booking-backend/internal/services"
	"github.com/skyreserve/flight-booking-backend/pkg/jwt"
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

	logger.Info("Starting SkyReserve Flight Booking Backend")
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

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize repositories
	flightRepo := database.NewFlightRepository(db)
	seatRepo := database.NewSeatRepository(db)
	ticketRepo := database.NewTicketRepository(db)
	couponRepo := database.NewCouponRepository(db)
	walletRepo := database.NewWalletRepository(db)
	userRepo := database.NewUserRepository(db)
	auditRepo := database.NewPaymentAuditRepository(db, logger)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	gatewayService := services.NewGatewayService(&cfg.Payment, logger)
	if !gatewayService.IsConfigured() {
		logger.Warn("Payment gateway credentials not set, running in sandbox placeholder mode")
	}

	couponService := services.NewCouponService(couponRepo, logger)
	flightService := services.NewFlightService(flightRepo, seatRepo, logger)
	seatService := services.NewSeatService(flightRepo, seatRepo, logger)
	bookingService := services.NewBookingService(flightRepo, seatRepo, ticketRepo, couponService, &cfg.Booking, logger)
	walletService := services.NewWalletService(
		walletRepo,
		userRepo,
		ticketRepo,
		couponService,
		gatewayService,
		auditRepo,
		&cfg.Wallet,
		cfg.Security.BcryptCost,
		logger,
	)
	paymentService := services.NewPaymentService(
		ticketRepo,
		walletRepo,
		auditRepo,
		bookingService,
		couponService,
		gatewayService,
		logger,
	)
	auditService := services.NewAuditService(db)

	// Background payment deadline sweep
	expirationService := services.NewExpirationService(ticketRepo, paymentService, cfg.Booking.SweepInterval, logger)
	expirationService.Start()

	// Nightly seat reconciliation and audit pruning
	cronService := services.NewCronService(seatService, auditRepo, cfg.Booking.AuditRetentionDays)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Cron service started")

	logger.Info("Services initialized")

	// Initialize handlers
	flightHandler := handlers.NewFlightHandler(flightService, seatService, logger)
	ticketHandler := handlers.NewTicketHandler(bookingService, auditService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, auditService, logger)
	walletHandler := handlers.NewWalletHandler(walletService, auditService, logger)
	couponHandler := handlers.NewCouponHandler(couponService, logger)
	auditHandler := handlers.NewAuditHandler(auditService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Flight catalog and seat maps (public)
		flights := v1.Group("/flights")
		{
			flights.GET("", flightHandler.ListFlights)
			flights.GET("/:code", flightHandler.GetFlight)
			flights.GET("/:code/seats", flightHandler.GetSeatMap)
		}

		// Gateway webhook (unauthenticated, HMAC-verified)
		v1.POST("/payments/webhook", paymentHandler.HandleWebhook)

		// Ticket lifecycle (protected)
		tickets := v1.Group("/tickets")
		tickets.Use(middleware.AuthMiddleware(jwtService))
		{
			tickets.POST("", ticketHandler.BookTicket)
			tickets.GET("", ticketHandler.ListTickets)
			tickets.GET("/:id", ticketHandler.GetTicket)
			tickets.POST("/:id/cancel", ticketHandler.CancelTicket)
			tickets.POST("/:id/check-in", ticketHandler.CheckIn)
			tickets.POST("/:id/payment/initiate", paymentHandler.InitiatePayment)
			tickets.POST("/:id/payment/confirm", paymentHandler.ConfirmPayment)
			tickets.POST("/:id/refund", paymentHandler.Refund)
		}

		// Wallet (protected)
		wallet := v1.Group("/wallet")
		wallet.Use(middleware.AuthMiddleware(jwtService))
		{
			wallet.GET("", walletHandler.GetBalance)
			wallet.PUT("/pin", walletHandler.SetPin)
			wallet.POST("/topup", walletHandler.Topup)
			wallet.POST("/topup/confirm", walletHandler.ConfirmTopup)
			wallet.POST("/pay", walletHandler.Pay)
			wallet.POST("/withdraw", walletHandler.Withdraw)
			wallet.GET("/transactions", walletHandler.ListTransactions)
		}

		// Coupon validation (protected)
		coupons := v1.Group("/coupons")
		coupons.Use(middleware.AuthMiddleware(jwtService))
		{
			coupons.POST("/validate", couponHandler.ValidateCoupon)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireAdmin())
		{
			// Flight management
			admin.POST("/flights", flightHandler.CreateFlight)
			admin.PATCH("/flights/:id", flightHandler.UpdateFlight)
			admin.DELETE("/flights/:id", flightHandler.DeleteFlight)
			admin.POST("/flights/:id/seats/block", flightHandler.BlockSeats)
			admin.POST("/flights/:id/seats/unblock", flightHandler.UnblockSeats)
			admin.GET("/flights/:id/reconcile", flightHandler.ReconcileFlight)

			// Coupon management
			admin.POST("/coupons", couponHandler.CreateCoupon)
			admin.GET("/coupons", couponHandler.ListCoupons)
			admin.GET("/coupons/:id", couponHandler.GetCoupon)
			admin.PATCH("/coupons/:id", couponHandler.UpdateCoupon)

			// Account activity trail
			admin.GET("/users/:id/activity", auditHandler.UserActivity)

			// Cron management
			admin.POST("/cron/reconcile-seats", func(c *gin.Context) {
				cronService.RunReconcileNow()
				c.JSON(http.StatusOK, gin.H{"message": "Seat reconciliation triggered"})
			})
			admin.GET("/cron/status", func(c *gin.Context) {
				c.JSON(http.StatusOK, cronService.GetJobStatus())
			})
		}
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

	logger.Info("Stopping expiration service...")
	expirationService.Stop()

	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if user, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = user.UserID
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db interface{ Ping() error }) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
