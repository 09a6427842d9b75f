package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sebuszqo/TaxManager/internal/api"
	"github.com/sebuszqo/TaxManager/internal/auth"
	"github.com/sebuszqo/TaxManager/internal/config"
	database "github.com/sebuszqo/TaxManager/internal/db"
	"github.com/sebuszqo/TaxManager/internal/files"
	"github.com/sebuszqo/TaxManager/internal/logger"
	"github.com/sebuszqo/TaxManager/internal/metrics"
	"github.com/sebuszqo/TaxManager/internal/ownership"
	"github.com/sebuszqo/TaxManager/internal/tax/application"
	"github.com/sebuszqo/TaxManager/internal/tax/infrastructure"
	"github.com/sebuszqo/TaxManager/internal/tax/interfaces"
	"github.com/sebuszqo/TaxManager/internal/user"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName            = "taxmanager"
	otpIssuer              = "TaxManager"
	sessionCleanupInterval = time.Minute
	shutdownTimeout        = 30 * time.Second
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("Server stopped with error", zap.Error(err))
	}
	zlog.Info("Server stopped gracefully")
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbService, err := database.NewDBService(ctx, cfg.DBConnectionString, zlog)
	if err != nil {
		return err
	}
	defer dbService.Close()

	if err := database.RunMigrations(dbService.DB); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	blobs, err := files.NewLocalStore(cfg.StorageDir)
	if err != nil {
		return err
	}
	guard := ownership.NewOwnerGuard()

	userRepo := user.NewUserRepository(dbService.DB)
	twoFactorRepo := auth.NewTwoFactorRepository(dbService.DB)

	sessionManager := auth.NewSessionManager()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authenticator := auth.NewAuthenticator(otpIssuer)

	userService := user.NewUserService(userRepo)
	userHandler := user.NewHandler(userService, api.RespondJSON, api.RespondError)
	authService := auth.NewAuthService(twoFactorRepo, userService, sessionManager, jwtManager, authenticator)
	authHandler := auth.NewHandler(authService, api.RespondJSON, api.RespondError, cfg.Environment == "production")

	entryRepo := infrastructure.NewEntryRepository(dbService.DB)
	summaryRepo := infrastructure.NewSummaryRepository(dbService.DB)
	taxService := application.NewEntryService(entryRepo, summaryRepo, guard, appMetrics)
	taxHandler := interfaces.NewTaxHandler(taxService, api.RespondJSON, api.RespondError)

	fileRepo := files.NewRepository(dbService.DB)
	fileService := files.NewService(fileRepo, blobs, guard, appMetrics, cfg.MaxUploadBytes)
	fileHandler := files.NewHandler(fileService, api.RespondJSON, api.RespondError, cfg.MaxUploadBytes)

	server := NewServer(authHandler, authService, userHandler, taxHandler, fileHandler, appMetrics, dbService.Health)
	server.RegisterRoutes()

	sessionManager.StartSessionTokenCleanup(ctx, sessionCleanupInterval)

	sweeper := files.NewSweeper(fileRepo, blobs, cfg.FilesSweepGrace, appMetrics, zlog.Named("sweeper"))
	scheduler, err := sweeper.Start(ctx, cfg.FilesSweepSchedule)
	if err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           logger.Middleware(zlog)(server.router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
