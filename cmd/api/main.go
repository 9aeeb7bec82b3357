package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josh-kwaku/custodial-ledger/internal/config"
	"github.com/josh-kwaku/custodial-ledger/internal/events"
	eventskafka "github.com/josh-kwaku/custodial-ledger/internal/events/kafka"
	"github.com/josh-kwaku/custodial-ledger/internal/handler"
	"github.com/josh-kwaku/custodial-ledger/internal/logging"
	"github.com/josh-kwaku/custodial-ledger/internal/middleware"
	"github.com/josh-kwaku/custodial-ledger/internal/repository"
	"github.com/josh-kwaku/custodial-ledger/internal/service"
	"github.com/josh-kwaku/custodial-ledger/internal/service/ledger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("custodial-ledger", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := eventskafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		slog.Info("event publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	users := repository.NewUserRepository(db)
	accounts := repository.NewAccountRepository(db)
	transactions := repository.NewTransactionRepository(db)

	registrations := service.NewRegistrationService(users, accounts, db, cfg.StartingBalance)
	ledgerSvc := ledger.NewService(accounts, transactions, users, publisher, db)

	jwtExpiry := time.Duration(cfg.JWTExpiryMinutes) * time.Minute
	authHandler := handler.NewAuthHandler(registrations, users, cfg.JWTSecret, jwtExpiry)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc)
	healthHandler := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.HandleFunc("POST /api/v1/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/login", authHandler.Login)

	authed := middleware.Auth(cfg.JWTSecret)
	mux.Handle("GET /api/v1/balance", authed(http.HandlerFunc(ledgerHandler.Balance)))
	mux.Handle("POST /api/v1/deposit", authed(http.HandlerFunc(ledgerHandler.Deposit)))
	mux.Handle("POST /api/v1/withdraw", authed(http.HandlerFunc(ledgerHandler.Withdraw)))
	mux.Handle("POST /api/v1/transfer", authed(http.HandlerFunc(ledgerHandler.Transfer)))
	mux.Handle("GET /api/v1/transactions", authed(http.HandlerFunc(ledgerHandler.Transactions)))

	var root http.Handler = mux
	root = middleware.Logging(root)
	root = middleware.RequestID(root)
	root = middleware.Recovery(root)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
