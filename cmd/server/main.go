package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/wealthwise-backend/internal/adapter/grpc"
	"github.com/simaogato/wealthwise-backend/internal/adapter/market"
	"github.com/simaogato/wealthwise-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/wealthwise-backend/internal/config"
	"github.com/simaogato/wealthwise-backend/internal/logger"
	"github.com/simaogato/wealthwise-backend/internal/usecase/consistency"
	"github.com/simaogato/wealthwise-backend/internal/usecase/history"
	"github.com/simaogato/wealthwise-backend/internal/usecase/investment"
	"github.com/simaogato/wealthwise-backend/internal/usecase/networth"
	"github.com/simaogato/wealthwise-backend/internal/usecase/pricecoverage"
	"github.com/simaogato/wealthwise-backend/internal/usecase/seeder"
)

const (
	dbConnectAttempts = 5
	dbRetryDelay      = 2 * time.Second
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Setup Database
	db, err := connectDB(ctx, log, cfg.DBConnStr)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Repositories (Postgres)
	priceRepo := postgres.NewPriceRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	assetRepo := postgres.NewPhysicalAssetRepository(db)
	debtRepo := postgres.NewDebtRepository(db)
	budgetRepo := postgres.NewBudgetRepository(db)
	goalRepo := postgres.NewGoalRepository(db)
	milestoneRepo := postgres.NewMilestoneRepository(db)

	// 3. Market data provider
	provider, err := market.NewYahooProvider(market.Config{
		BaseURL: cfg.MarketDataBaseURL,
		Timeout: cfg.MarketDataTimeout,
	}, log.With("component", "market"))
	if err != nil {
		log.Error("failed to create market data provider", "error", err)
		os.Exit(1)
	}

	// 4. Initialize Services (Use Cases)
	coverageCfg := pricecoverage.DefaultConfig()
	coverageCfg.Threshold = cfg.CoverageThreshold
	coverageCfg.BatchSize = cfg.CoverageBatchSize
	coverageCfg.BatchDelay = cfg.CoverageBatchDelay
	coverageService := pricecoverage.NewCoverageService(priceRepo, provider, coverageCfg, log.With("component", "coverage"))

	stats := history.NewStatsCache(history.StatsCacheConfig{
		Capacity: cfg.StatsCacheCapacity,
		TTL:      cfg.StatsCacheTTL,
	})
	historyService := history.NewService(holdingRepo, priceRepo, coverageService, stats, log.With("component", "history"))
	netWorthService := networth.NewNetWorthService(accountRepo, holdingRepo, assetRepo, debtRepo, milestoneRepo)
	validator := consistency.NewValidator(accountRepo, holdingRepo, assetRepo, debtRepo, budgetRepo, goalRepo, milestoneRepo,
		log.With("component", "consistency"))
	investmentService := investment.NewInvestmentService(holdingRepo, priceRepo, provider, log.With("component", "investment"))

	// Backfill price history for every held symbol without blocking startup
	if cfg.SeedOnStartup {
		priceSeeder := seeder.NewPriceSeeder(holdingRepo, coverageService, cfg.SeedLookbackDays, log.With("component", "seeder"))
		go func() {
			if _, err := priceSeeder.Seed(ctx); err != nil {
				log.Warn("price seeding failed", "error", err)
			}
		}()
	}

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log.With("component", "grpc")),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)

	server := grpcadapter.NewServer(historyService, coverageService, netWorthService, validator, investmentService, holdingRepo)
	grpcadapter.RegisterValuationServiceServer(grpcServer, server)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddress())
	if err != nil {
		log.Error("failed to listen", "address", cfg.GRPCAddress(), "error", err)
		os.Exit(1)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("gRPC server listening", "address", cfg.GRPCAddress())
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping gracefully")
	case err := <-serveErr:
		if err != nil {
			log.Error("gRPC server stopped unexpectedly", "error", err)
		}
	}

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")
}

// connectDB retries the initial connection while Postgres starts up
func connectDB(ctx context.Context, log *slog.Logger, connStr string) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		db, err := postgres.NewDB(pingCtx, connStr)
		cancel()
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn("database not ready, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dbRetryDelay):
		}
	}
	return nil, lastErr
}
