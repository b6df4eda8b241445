package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ruralsys/farm-telemetry/internal/config"
	"github.com/ruralsys/farm-telemetry/internal/handlers"
	"github.com/ruralsys/farm-telemetry/internal/ingest"
	"github.com/ruralsys/farm-telemetry/internal/logging"
	"github.com/ruralsys/farm-telemetry/internal/lora"
	"github.com/ruralsys/farm-telemetry/internal/metrics"
	"github.com/ruralsys/farm-telemetry/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	store := repository.NewStore(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	service := ingest.NewService(store, logger, ingest.WithPropertyScope(cfg.Ingest.EnforcePropertyScope))

	seed := cfg.LoRa.SimulatorSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gateway := lora.NewSimulator(seed, logger.WithField("component", "lora-gateway"))

	router := handlers.NewRouter(handlers.RouterDeps{
		Store:          store,
		Service:        service,
		Gateway:        gateway,
		Metrics:        m,
		Gatherer:       reg,
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bridge *lora.Bridge
	if cfg.MQTT.Enabled {
		if cfg.MQTT.APIToken == "" {
			logger.Warn("mqtt.api_token is empty, every uplink will be rejected")
		}
		bridge = lora.NewBridge(cfg.MQTT, service, m, logger)
		if err := bridge.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to start MQTT bridge")
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("Server failed")
	}

	if bridge != nil {
		bridge.Stop()
	}
	gateway.Disconnect()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
}
