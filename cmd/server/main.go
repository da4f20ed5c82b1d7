package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NickolasKemp/ordify/internal/agreements"
	"github.com/NickolasKemp/ordify/internal/audit"
	"github.com/NickolasKemp/ordify/internal/auth"
	"github.com/NickolasKemp/ordify/internal/cache"
	"github.com/NickolasKemp/ordify/internal/catalog"
	"github.com/NickolasKemp/ordify/internal/checkout"
	"github.com/NickolasKemp/ordify/internal/config"
	"github.com/NickolasKemp/ordify/internal/customers"
	"github.com/NickolasKemp/ordify/internal/httpx"
	"github.com/NickolasKemp/ordify/internal/orders"
	"github.com/NickolasKemp/ordify/internal/payments"
	"github.com/NickolasKemp/ordify/internal/stats"
	"github.com/NickolasKemp/ordify/internal/storage/sqlite"
	"github.com/NickolasKemp/ordify/internal/telemetry"
)

func main() {
	configPath := flag.String("config", os.Getenv("ORDIFY_CONFIG"), "path to yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := telemetry.InitLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.SetupTracer(ctx, cfg.Telemetry)
		if err != nil {
			log.Error("failed to initialise tracer", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	store, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		log.Error("failed to open database", "path", cfg.Storage.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var c cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "ordify")
		log.Info("using redis cache", "addr", cfg.Redis.Addr)
	} else {
		c = cache.NewMemory("ordify")
		log.Info("using in-memory cache")
	}

	publisher := audit.Publisher(audit.Nop{})
	if cfg.Kafka.Enabled {
		publisher, err = audit.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("failed to connect kafka producer", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		log.Info("audit events enabled", "topic", cfg.Kafka.Topic)
	}

	catalogSvc := catalog.NewService(store, c, log)
	customersSvc := customers.NewService(store, c, log)
	ordersSvc := orders.NewService(store, c, publisher, log)
	agreementsSvc := agreements.NewService(store)
	paymentsSvc := payments.NewService(store, c, publisher, log)
	checkoutSvc := checkout.NewService(
		catalogSvc, customersSvc, agreementsSvc, store,
		paymentsSvc, ordersSvc, store.FlowLogs(), publisher, log,
	)
	sessions := checkout.NewSessions(checkoutSvc)
	authSvc := auth.NewService(store, c, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, log)
	statsSvc := stats.NewService(store)

	handler := httpx.NewHandler(
		catalogSvc, customersSvc, ordersSvc, agreementsSvc,
		paymentsSvc, checkoutSvc, sessions, authSvc, statsSvc,
		cfg.Auth.RefreshTTL,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      httpx.NewRouter(handler, authSvc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("ordify server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
