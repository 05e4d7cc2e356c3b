package main

import (
	"hotel-service/internal/handler"
	"hotel-service/internal/job"
	"hotel-service/internal/middleware"
	"hotel-service/internal/payment"
	"hotel-service/internal/recovery"
	"hotel-service/pkg/client"
	"hotel-service/pkg/config"
	"hotel-service/pkg/database"
	"hotel-service/pkg/jwtutil"
	"hotel-service/pkg/logger"
	"hotel-service/pkg/mailer"
	"hotel-service/prometheus"

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
	log.Info("Starting hotel service...", zap.String("environment", cfg.Server.Env))

	// Initialize database (runs migrations automatically)
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()
	log.Info("Database ready", zap.String("path", cfg.Database.Path))

	// Seed the bootstrap operator account if none exists
	if err := recovery.SeedDefaultSuperadmin(cfg.Superadmin.Username, cfg.Superadmin.Password); err != nil {
		log.Fatal("Failed to seed superadmin", zap.Error(err))
	}

	// Wire handler dependencies
	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:     cfg.JWT.SigningKey,
		ExpirationTime: cfg.JWT.ExpirationTime,
	})
	otpSender := mailer.New(&cfg.Mail)
	handler.InitHandlers(cfg, jwtUtil, otpSender)

	var gateway *client.RazorpayClient
	if cfg.Razorpay.Configured() {
		gateway = client.NewRazorpayClient(cfg.Razorpay.BaseURL, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	} else {
		log.Warn("Payment gateway credentials missing, order creation disabled")
	}
	handler.InitPaymentHandlers(gateway, payment.NewVerifier(cfg.Razorpay.KeySecret))

	// Background jobs: expiry sweep and inactive-account reaper
	scheduler := job.NewScheduler(&cfg.Subscription)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/", handler.Hello)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Account lifecycle routes
	auth := e.Group("/auth")
	auth.POST("/signup", handler.Signup)
	auth.POST("/login", handler.Login)
	auth.POST("/forgot-password", handler.ForgotPassword)
	auth.POST("/verify-otp", handler.VerifyOTP)
	auth.POST("/reset-password", handler.ResetPassword, middleware.JWTAuth(jwtUtil), middleware.RequireRole(jwtutil.RolePasswordReset))

	// Owner routes scoped to one tenant
	api := e.Group("/api", middleware.JWTAuth(jwtUtil), middleware.RequireRole(jwtutil.RoleOwner), middleware.RequireTenant)
	api.GET("/subscription-status", handler.SubscriptionStatus)
	api.POST("/create-order", handler.CreateOrder)
	api.POST("/verify-payment", handler.VerifyPayment)
	api.GET("/overview", handler.Overview, middleware.SubscriptionRequired)

	// Operator routes
	admin := e.Group("/superadmin")
	admin.POST("/login", handler.SuperadminLogin)
	protected := admin.Group("", middleware.JWTAuth(jwtUtil), middleware.RequireRole(jwtutil.RoleSuperadmin))
	protected.GET("/tenants", handler.ListTenants)
	protected.POST("/tenants/:id/reset-password", handler.AdminResetPassword)
	protected.POST("/tenants/:id/temp-password", handler.IssueTempPassword)
	protected.POST("/tenants/:id/deactivate", handler.DeactivateTenant)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
