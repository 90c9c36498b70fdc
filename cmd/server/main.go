// Package main is the entry point for the API server.
// It loads configuration, wires the ledger store, the collaborators and
// every service, and serves the HTTP routes until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vaultledger/internal/config"
	"vaultledger/internal/handlers"
	"vaultledger/internal/logger"
	"vaultledger/internal/metrics"
	"vaultledger/internal/repositories"
	"vaultledger/internal/repositories/cache"
	"vaultledger/internal/repositories/memory"
	"vaultledger/internal/routes"
	"vaultledger/internal/services/auth"
	"vaultledger/internal/services/eligibility"
	"vaultledger/internal/services/notification"
	"vaultledger/internal/services/pricing"
	"vaultledger/internal/services/resolution"
	"vaultledger/internal/services/reward"
	"vaultledger/internal/services/wallet"
	"vaultledger/internal/services/withdrawal"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Service: "vaultledger-api",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheusCollector(registry)

	health := map[string]handlers.Pinger{}

	// Redis backs the wallet view and the price cache.
	var cacheSvc *cache.CacheService
	client := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	probe, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := client.Ping(probe).Err(); err != nil {
		zl.Warn("redis unavailable, running without cache", zap.Error(err))
		_ = client.Close()
	} else {
		cacheSvc = cache.NewCacheService(client, 5*time.Minute)
		health["redis"] = cacheSvc
		defer cacheSvc.Close()
	}
	cancel()

	// Ledger store
	var (
		repo  repositories.LedgerRepository
		cards repositories.CardApplicationRepository
		db    *gorm.DB
	)
	switch cfg.StoreDriver {
	case "memory":
		zl.Warn("using the in-memory ledger store, data is lost on restart")
		repo = memory.NewLedgerRepository()
		cards = memory.NewCardApplicationRepository()
	case "postgres":
		var err error
		db, err = repositories.InitDB(cfg.Database, zl)
		if err != nil {
			return err
		}
		repo = repositories.NewLedgerRepository(db, cacheSvc, zl)
		cards = repositories.NewCardApplicationRepository(db)
		health["database"] = repositories.PostgresHealth{DB: db}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	// Price collaborator. A nil *CacheService must not reach pricing.New as a typed interface.
	var prices pricing.Provider
	var err error
	if cacheSvc != nil {
		prices, err = pricing.New(cfg.Pricing, cacheSvc, zl)
	} else {
		prices, err = pricing.New(cfg.Pricing, nil, zl)
	}
	if err != nil {
		return err
	}

	// Notification collaborator
	var sender notification.Sender
	switch cfg.Notification.Transport {
	case "mail":
		mailer, err := notification.NewMailSender(cfg.Notification.Mail)
		if err != nil {
			return err
		}
		sender = mailer
	case "kafka":
		publisher := notification.NewKafkaSender(notification.NewWriter(cfg.Notification.Brokers, cfg.Notification.Topic))
		defer publisher.Close()
		sender = publisher
	default:
		sender = notification.LogSender{Log: zl.Named("notification")}
	}
	dispatcher := notification.NewDispatcher(sender, cfg.Notification.Timeout, zl.Named("notification"), collector)
	defer dispatcher.Wait()

	// Eligibility collaborator
	var checker eligibility.Checker = eligibility.NewApplicationChecker(cards)
	if cfg.StripeKey != "" {
		checker = eligibility.NewStripeChecker(cards, cfg.StripeKey, zl.Named("eligibility"))
	}

	templates := cfg.Notification.Templates
	// only the postgres store invalidates cached accounts
	var walletOpts []wallet.Option
	if cacheSvc != nil && db != nil {
		walletOpts = append(walletOpts, wallet.WithAccountCache(cacheSvc))
	}
	walletService := wallet.NewService(repo, prices, wallet.RandomAddresses{}, dispatcher, templates, collector, zl.Named("wallet"), walletOpts...)

	rewardCfg, err := reward.ConfigFrom(cfg.Reward, templates)
	if err != nil {
		return err
	}
	rewardService := reward.NewService(repo, walletService, prices, rewardCfg, collector, zl.Named("reward"))
	authService := auth.NewService(repo, rewardService, cfg.JWTSecret, zl.Named("auth"))
	withdrawalService := withdrawal.NewService(repo, walletService, checker, dispatcher, withdrawal.Config{
		Secret:    cfg.OTPSecret,
		TTL:       cfg.OTPTTL,
		Templates: templates,
	}, collector, zl.Named("withdrawal"))
	resolutionService := resolution.NewService(repo, walletService, dispatcher, templates, collector, zl.Named("resolution"))

	sweeper, err := withdrawal.NewSweeper(repo, time.Minute, zl.Named("sweeper"))
	if err != nil {
		return err
	}
	sweeper.Start()
	defer func() {
		if err := sweeper.Stop(); err != nil {
			zl.Warn("sweeper shutdown failed", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      "vaultledger",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Auth:        authService,
		Wallet:      walletService,
		Withdrawals: withdrawalService,
		Resolutions: resolutionService,
		Rewards:     rewardService,
		Cards:       cards,
		JWTSecret:   cfg.JWTSecret,
		Gatherer:    registry,
		Health:      health,
		Log:         zl.Named("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zl.Info("shutting down", zap.String("signal", sig.String()))
	}

	return app.ShutdownWithTimeout(10 * time.Second)
}
