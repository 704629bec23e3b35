package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clubster-booking/internal/analytics"
	analytics_api "clubster-booking/internal/analytics/api"
	"clubster-booking/internal/auth"
	"clubster-booking/internal/booking"
	"clubster-booking/internal/booking/booking_api"
	bookingdb "clubster-booking/internal/booking/db"
	rediswrap "clubster-booking/internal/booking/redis"
	"clubster-booking/internal/config"
	"clubster-booking/internal/database/migrations"
	"clubster-booking/internal/kafka"
	"clubster-booking/internal/logger"
	"clubster-booking/internal/payment"
	"clubster-booking/internal/sse"
	ticket_db "clubster-booking/internal/tickets/db"
	"clubster-booking/internal/tickets/qr"
	tickets "clubster-booking/internal/tickets/service"
	"clubster-booking/internal/tickets/template"
	"clubster-booking/internal/tickets/ticket_api"
	"clubster-booking/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func openPostgres(cfg config.DatabaseConfig, logger *logger.Logger) (*sql.DB, error) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL after %d attempts: %w", maxRetries, err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	return sqldb, nil
}

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	sqldb, err := openPostgres(cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	logger.Info("DATABASE", "✅ PostgreSQL connection successful")
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// checkout proceeds without the double-submit guard when redis is down
		logger.Warn("REDIS", fmt.Sprintf("Redis connection error, continuing without checkout lock: %v", err))
	} else {
		logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, redisClient.Options().DB))
	}

	return bunDB, redisClient
}

// runMigrations uses its own connection because closing the migrator closes the database handle.
func runMigrations(cfg config.DatabaseConfig, logger *logger.Logger) error {
	sqldb, err := openPostgres(cfg, logger)
	if err != nil {
		return err
	}
	migrationDB := bun.NewDB(sqldb, pgdialect.New())

	opts := migrations.DefaultOptions()
	opts.Dir = cfg.MigrationsDir
	runner := migrations.NewRunner(migrationDB, opts, logger)
	defer func() {
		if err := runner.Close(); err != nil {
			logger.Warn("MIGRATION", fmt.Sprintf("Failed to close migrator: %v", err))
		}
	}()

	return runner.RunMigrations()
}

func newTokenVerifier(ctx context.Context, cfg config.AuthConfig, logger *logger.Logger) auth.TokenVerifier {
	if cfg.JWTSecret != "" {
		logger.Info("AUTH", "Verifying HS256 access tokens with the shared secret")
		return auth.NewHMACVerifier(cfg.JWTSecret)
	}

	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
	if err != nil {
		logger.Fatal("AUTH", fmt.Sprintf("Failed to initialize OIDC verifier: %v", err))
	}
	logger.Info("AUTH", fmt.Sprintf("Verifying access tokens against issuer %s", cfg.OIDCIssuer))
	return verifier
}

// requestLogger exists because main shadows the logger package.
func requestLogger(l *logger.Logger) func(http.Handler) http.Handler {
	return logger.Middleware(l)
}

func health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("CONFIG", err.Error())
	}
	ctx := context.Background()

	if cfg.Database.AutoMigrate {
		logger.Info("MIGRATION", fmt.Sprintf("Applying migrations from %s", cfg.Database.MigrationsDir))
		if err := runMigrations(cfg.Database, logger); err != nil {
			logger.Fatal("MIGRATION", fmt.Sprintf("Failed to run migrations: %v", err))
		}
	}

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	gateway, err := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, logger)
	if err != nil {
		logger.Fatal("STRIPE", err.Error())
	}

	ticketDB := &ticket_db.DB{Bun: bunDB}
	bookingDB := &bookingdb.DB{Bun: bunDB}

	ticketService := tickets.NewTicketService(
		ticketDB,
		qr.NewQRGenerator(cfg.Tickets.QRSecret),
		template.NewTicketPDFGenerator(cfg.Tickets.FontPath),
		logger,
	)

	bookingService := booking.NewService(bookingDB, ticketService, gateway, logger, booking.Settings{
		BaseURL:           cfg.App.BaseURL,
		Currency:          cfg.Stripe.Currency,
		CommissionPercent: cfg.Stripe.CommissionPercent,
		TopicCreated:      cfg.Kafka.Topics.BookingCreated,
		TopicConfirmed:    cfg.Kafka.Topics.BookingConfirmed,
	})
	bookingService.Lock = rediswrap.NewCheckoutGuard(redisClient, cfg.Redis.CheckoutLockTTL)

	emitter := sse.NewBookingEventEmitter()
	bookingService.Notifier = emitter

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer kafkaProducer.Close()
		bookingService.Kafka = kafkaProducer
		logger.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Kafka.Brokers))

		requiredTopics := []string{cfg.Kafka.Topics.BookingCreated, cfg.Kafka.Topics.BookingConfirmed}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Info("KAFKA", "Kafka disabled, booking events will not be published")
	}

	verifier := newTokenVerifier(ctx, cfg.Auth, logger)

	bookingHandler := booking_api.NewHandler(bookingService, logger)
	sseHandler := booking_api.NewSSEHandler(logger, emitter, bookingService)
	ticketHandler := ticket_api.NewHandler(ticketService, bookingDB, logger)
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(bunDB), bookingService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	// --- Public Routes ---
	r.Get("/health", health)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/stripe/webhook", bookingHandler.StripeWebhook)
	logger.Info("ROUTER", "Public routes registered: /health, /metrics, /stripe/webhook")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))
		logger.Info("AUTH", "Token middleware applied to protected routes")

		r.Post("/checkout", bookingHandler.Checkout)
		r.Get("/bookings", bookingHandler.ListBookings)

		r.Get("/ticket", ticketHandler.DownloadTickets)
		r.Post("/ticket/verify", ticketHandler.VerifyTicket)

		r.Route("/manager", func(r chi.Router) {
			r.Get("/bookings", bookingHandler.ListManagerBookings)
			r.Get("/clubs/{clubID}/bookings/stream", sseHandler.HandleClubBookings)
			r.Get("/events/{eventID}/bookings/stream", sseHandler.HandleEventBookings)
		})
		analyticsHandler.RegisterRoutes(r)
		logger.Info("ROUTER", "Booking, ticket, manager and analytics routes registered")
	})

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// no WriteTimeout so booking streams stay open
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Booking Service shutdown complete")
	}
}
