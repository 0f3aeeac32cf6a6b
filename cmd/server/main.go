// Package main provides the API server entry point for the fund engine service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fund-engine/internal/api"
	"github.com/fund-engine/internal/config"
	"github.com/fund-engine/internal/fund"
	"github.com/fund-engine/internal/logging"
	"github.com/fund-engine/internal/storage"
	"github.com/fund-engine/internal/types"
)

func main() {
	fmt.Println("Fund Engine API Server")
	log.Println("Server starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	owner, err := types.ParsePrincipal(cfg.Fund.Owner)
	if err != nil {
		logger.WithError(err).Fatal("FUND_OWNER is not a valid principal")
	}

	// Select the ledger backend
	var ledger fund.Ledger
	switch cfg.Fund.Backend {
	case config.BackendMemory:
		logger.Info("Using in-memory ledger backend")
		ledger = fund.NewMemoryLedger()

	case config.BackendPostgres:
		logger.Info("Connecting to Postgres...")
		postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer postgres.Close()
		ledger = storage.NewPostgresLedger(postgres)

	default:
		logger.WithField("backend", cfg.Fund.Backend).Fatal("Unknown ledger backend")
	}

	// Event history is optional; the engine runs without it
	var (
		sink    fund.EventSink
		history api.EventHistoryInterface
	)
	clickhouseDB, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable, event history disabled")
	} else {
		defer clickhouseDB.Close()
		eventHistory := storage.NewEventHistory(clickhouseDB)
		sink = storage.NewGuardedSink(eventHistory)
		history = eventHistory
		logger.Info("Event history enabled")
	}

	// The read-view cache is optional too
	var cacheService *storage.CacheService
	redisCache, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, read-view cache disabled")
	} else {
		defer redisCache.Close()
		cacheService = storage.NewCacheService(redisCache, cfg.Cache.TTL)
		logger.Info("Read-view cache enabled")
	}

	// Height is derived from wall time at the configured block cadence
	clock := fund.NewIntervalClock(time.Unix(cfg.Chain.GenesisUnix, 0), cfg.Chain.BlockInterval)

	engine := fund.NewEngine(ledger, clock, sink, fund.Params{
		Owner:             owner,
		MinDeposit:        cfg.Fund.MinDeposit,
		ManagementFeeBps:  cfg.Fund.ManagementFeeBps,
		PerformanceFeeBps: cfg.Fund.PerformanceFeeBps,
	})

	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}

	server := api.NewServer(serverConfig, engine, cacheService, history)

	// Start server in a goroutine so shutdown signals are handled
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Info("Server stopped")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host":    cfg.Server.Host,
		"port":    cfg.Server.Port,
		"backend": cfg.Fund.Backend,
	}).Info("Fund engine server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
