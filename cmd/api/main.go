package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/homeserve/homeserve-api/internal/config"
	"github.com/homeserve/homeserve-api/internal/domain/auth"
	"github.com/homeserve/homeserve-api/internal/domain/order"
	"github.com/homeserve/homeserve-api/internal/domain/payment"
	"github.com/homeserve/homeserve-api/internal/domain/referral"
	"github.com/homeserve/homeserve-api/internal/domain/service"
	"github.com/homeserve/homeserve-api/internal/domain/user"
	"github.com/homeserve/homeserve-api/internal/domain/wallet"
	"github.com/homeserve/homeserve-api/internal/metrics"
	"github.com/homeserve/homeserve-api/internal/middleware"
	"github.com/homeserve/homeserve-api/internal/pkg/database"
	"github.com/homeserve/homeserve-api/internal/pkg/jwt"
	"github.com/homeserve/homeserve-api/internal/pkg/logger"
	"github.com/homeserve/homeserve-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})
	metrics.Init()

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting HomeServe API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.RunMigrations(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	serviceRepo := service.NewRepository(db)
	orderRepo := order.NewRepository(db)

	// ---------- Services ----------
	walletService := wallet.NewService(walletRepo)
	orderService := order.NewService(orderRepo, serviceRepo)
	referralService := referral.NewService(userRepo, orderRepo, walletService, cfg.ReferralBonusAmount)
	paymentService := payment.NewService(orderRepo, referralService)
	authService := auth.NewService(userRepo, walletRepo, jwtService, redisClient)

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	serviceHandler := service.NewHandler(serviceRepo)
	orderHandler := order.NewHandler(orderService)
	walletHandler := wallet.NewHandler(walletService)
	referralHandler := referral.NewHandler(referralService)
	paymentHandler := payment.NewHandler(paymentService, cfg.RazorpayWebhookSecret, cfg.ReferralBonusAmount, cfg.IsDevelopment())

	authMiddleware := middleware.Auth(jwtService)
	partnerOnly := middleware.RequireRole(string(user.RolePartner), string(user.RoleAdmin))
	adminOnly := middleware.RequireRole(string(user.RoleAdmin))

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.HTTPMetrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes(authMiddleware))
		r.Mount("/services", serviceHandler.Routes(authMiddleware, partnerOnly, adminOnly))
		r.Mount("/orders", orderHandler.Routes(authMiddleware))
		r.Mount("/partner/orders", orderHandler.PartnerRoutes(authMiddleware, partnerOnly))
		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.Mount("/referrals", referralHandler.Routes(authMiddleware))
	})

	r.Mount("/webhooks", paymentHandler.WebhookRoutes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
