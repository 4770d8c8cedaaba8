package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ajopay/internal/auth"
	"ajopay/internal/chat"
	"ajopay/internal/handler"
	"ajopay/internal/kyc"
	"ajopay/internal/ledger"
	"ajopay/internal/middleware"
	"ajopay/internal/notification"
	"ajopay/internal/payment"
	"ajopay/internal/payout"
	"ajopay/internal/reconciliation"
	"ajopay/internal/repository/postgres"
	"ajopay/internal/sms"
	"ajopay/internal/support"
	"ajopay/internal/wallet"
	"ajopay/pkg/cache"
	"ajopay/pkg/config"
	"ajopay/pkg/logger"
	"ajopay/pkg/mailer"
	"ajopay/pkg/validator"

	"ajopay/internal/domain"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("ajopay-server")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	// Database
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Redis
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	defer redisCache.Close()
	redisClient := redisCache.Client()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	walletRepo := postgres.NewWalletRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	payoutRepo := postgres.NewPayoutRepository(db)
	reconRepo := postgres.NewReconciliationRepository(db)
	kycRepo := postgres.NewKYCRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	supportRepo := postgres.NewSupportRepository(db)
	chatRepo := postgres.NewChatRepository(db)

	// Provider clients
	smsClient := sms.NewClient(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.SenderID)
	gatewayClient := payment.NewGatewayClient(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey, cfg.Gateway.CallbackURL)
	m := mailer.New(mailer.Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
		UseTLS:   cfg.Email.SMTPUseTLS,
	})

	smsUnitPrice, err := decimal.NewFromString(cfg.SMS.UnitPrice)
	if err != nil {
		log.Fatal("Invalid SMS_UNIT_PRICE", map[string]interface{}{"value": cfg.SMS.UnitPrice})
	}

	// Services
	otpStore := auth.NewOTPStore(redisCache, cfg.OTP.Digits, cfg.OTP.Period, cfg.OTP.SecretTTL)
	authService := auth.NewService(userRepo, otpStore, smsClient, cfg.JWT.Secret, cfg.JWT.Expiration, log)
	walletService := wallet.NewService(walletRepo, log)
	ledgerService := ledger.NewService(walletRepo, ledgerRepo, log)
	notificationService := notification.NewService(notificationRepo, userRepo, m, smsClient, redisCache, cfg.Notification.PrefsCacheTTL, smsUnitPrice, log)
	payoutService := payout.NewService(payoutRepo, ledgerService, notificationService, cfg.Payout.ApprovalThreshold, log)
	reconService := reconciliation.NewService(reconRepo, log)
	kycService := kyc.NewService(kycRepo, userRepo, cfg.KYC.Provider, cfg.KYC.WebhookSecret, log)
	paymentService := payment.NewService(paymentRepo, walletRepo, ledgerService, gatewayClient, cfg.Gateway.WebhookSecret, log)
	supportService := support.NewService(supportRepo, log)
	chatService := chat.NewService(chatRepo, chat.NewHub(), log)

	// Handlers
	val := validator.New()
	authHandler := handler.NewAuthHandler(authService, val, log)
	walletHandler := handler.NewWalletHandler(walletService, ledgerService, val, log)
	payoutHandler := handler.NewPayoutHandler(payoutService, val, log)
	reconHandler := handler.NewReconciliationHandler(reconService, val, log)
	kycHandler := handler.NewKYCHandler(kycService, val, log)
	paymentHandler := handler.NewPaymentHandler(paymentService, val, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, val, log)
	supportHandler := handler.NewSupportHandler(supportService, val, log)
	chatHandler := handler.NewChatHandler(chatService, val, log)
	systemHandler := handler.NewSystemHandler(db, redisClient, log)

	// Router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.NewRateLimiter(redisClient, 120, time.Minute).Limit)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(10 << 20))
	r.Use(middleware.NewRecovery(log))

	// Public routes
	r.HandleFunc("/health", systemHandler.Health).Methods("GET")
	r.HandleFunc("/status", systemHandler.Status).Methods("GET")
	r.HandleFunc("/api/v1/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/v1/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/v1/auth/send-otp", authHandler.SendOTP).Methods("POST")
	r.HandleFunc("/api/v1/auth/verify-otp", authHandler.VerifyOTP).Methods("POST")

	// Provider webhooks authenticate with signatures, not bearer tokens
	r.HandleFunc("/api/v1/webhooks/kyc", kycHandler.Webhook).Methods("POST")
	r.HandleFunc("/api/v1/webhooks/gateway", paymentHandler.Webhook).Methods("POST")
	r.HandleFunc("/api/v1/webhooks/messaging", notificationHandler.DeliveryWebhook).Methods("POST")

	// Authenticated routes
	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)

	api.HandleFunc("/wallets", walletHandler.Create).Methods("POST")
	api.HandleFunc("/wallets", walletHandler.List).Methods("GET")
	api.HandleFunc("/wallets/{id}", walletHandler.Get).Methods("GET")
	api.HandleFunc("/wallets/{id}/history", walletHandler.History).Methods("GET")

	api.HandleFunc("/kyc/submit", kycHandler.Submit).Methods("POST")
	api.HandleFunc("/kyc/status", kycHandler.Status).Methods("GET")

	api.HandleFunc("/payments/initialize", paymentHandler.Initialize).Methods("POST")
	api.HandleFunc("/payments/verify/{reference}", paymentHandler.Verify).Methods("GET")

	api.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	api.HandleFunc("/notifications/prefs", notificationHandler.GetPrefs).Methods("GET")
	api.HandleFunc("/notifications/prefs", notificationHandler.UpdatePrefs).Methods("PUT")

	api.HandleFunc("/support/tickets", supportHandler.Create).Methods("POST")
	api.HandleFunc("/support/tickets", supportHandler.List).Methods("GET")
	api.HandleFunc("/support/tickets/{id}", supportHandler.Get).Methods("GET")
	api.HandleFunc("/support/tickets/{id}/messages", supportHandler.Messages).Methods("GET")
	api.HandleFunc("/support/tickets/{id}/messages", supportHandler.Reply).Methods("POST")

	api.HandleFunc("/chat/threads", chatHandler.CreateThread).Methods("POST")
	api.HandleFunc("/chat/threads", chatHandler.ListThreads).Methods("GET")
	api.HandleFunc("/chat/threads/{id}/messages", chatHandler.Messages).Methods("GET")
	api.HandleFunc("/chat/threads/{id}/messages", chatHandler.SendMessage).Methods("POST")
	api.HandleFunc("/chat/threads/{id}/ws", chatHandler.Stream).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	idempotency := middleware.NewIdempotencyMiddleware(redisClient, 24*time.Hour)

	admin.HandleFunc("/payouts", payoutHandler.Create).Methods("POST")
	admin.HandleFunc("/payouts", payoutHandler.List).Methods("GET")
	admin.HandleFunc("/payouts/{id}", payoutHandler.Get).Methods("GET")
	admin.HandleFunc("/payouts/{id}/approve", payoutHandler.Approve).Methods("POST")
	admin.Handle("/payouts/bulk-approve", idempotency.Require(http.HandlerFunc(payoutHandler.BulkApprove))).Methods("POST")
	admin.HandleFunc("/payouts/{id}/paid", payoutHandler.MarkPaid).Methods("POST")
	admin.HandleFunc("/payouts/{id}/failed", payoutHandler.MarkFailed).Methods("POST")

	admin.HandleFunc("/reconciliation/runs", reconHandler.CreateRun).Methods("POST")
	admin.HandleFunc("/reconciliation/runs", reconHandler.ListRuns).Methods("GET")
	admin.HandleFunc("/reconciliation/runs/{id}", reconHandler.GetRun).Methods("GET")
	admin.HandleFunc("/reconciliation/runs/{id}/import", reconHandler.Import).Methods("POST")
	admin.HandleFunc("/reconciliation/runs/{id}/items", reconHandler.Items).Methods("GET")
	admin.HandleFunc("/reconciliation/runs/{id}/suggestions", reconHandler.Suggestions).Methods("GET")
	admin.HandleFunc("/reconciliation/runs/{id}/confirm", reconHandler.ConfirmMatch).Methods("POST")
	admin.HandleFunc("/reconciliation/runs/{id}/resolve", reconHandler.BulkResolve).Methods("POST")
	admin.HandleFunc("/reconciliation/runs/{id}/items/{itemID}/mismatch", reconHandler.MarkMismatched).Methods("POST")
	admin.HandleFunc("/reconciliation/runs/{id}/complete", reconHandler.CompleteRun).Methods("POST")

	admin.HandleFunc("/notifications/dispatch", notificationHandler.Dispatch).Methods("POST")

	// Support staff routes
	staff := api.PathPrefix("/staff").Subrouter()
	staff.Use(middleware.RequireRole(domain.RoleSupport, domain.RoleAdmin))
	staff.HandleFunc("/support/tickets/{id}/transition", supportHandler.Transition).Methods("POST")

	// Server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", map[string]interface{}{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Server stopped", nil)
}
