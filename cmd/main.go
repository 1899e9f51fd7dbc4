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

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/monitor"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/receipt"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/sales"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/terminal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("pos service stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- storage ---
	var (
		store  catalog.Store
		ledger sales.Store
		seq    sequence.Sequencer
	)
	switch cfg.CatalogBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}
		}
		store, ledger, seq = postgresStores(pool)
	default:
		store = catalog.NewSeededMemoryCatalog()
		ledger = sales.NewMemoryStore()
		seq = sequence.NewMemory()
	}
	logger.Info("catalog ready", zap.String("backend", cfg.CatalogBackend))

	// --- operators ---
	users := auth.NewMemoryStore(0)
	if err := users.AddUser("admin", "Administrator", auth.RoleAdmin, cfg.AdminPassword); err != nil {
		return err
	}
	if err := users.AddUser("cashier", "Cashier", auth.RoleCashier, cfg.CashierPassword); err != nil {
		return err
	}
	authn := auth.NewAuthenticator(users, cfg.JWTSecret, cfg.TokenTTL, logger)

	// --- AMQP ---
	var publisher terminal.SalePublisher = events.NopPublisher{}
	if cfg.RabbitURL != "" {
		conn, err := events.Dial(cfg.RabbitURL, 10, 2*time.Second, logger)
		if err != nil {
			return err
		}
		defer closeConn(conn, logger)

		pub, err := events.NewPublisher(conn, seq, logger, events.PublisherOptions{Producer: "pos-" + cfg.TerminalID})
		if err != nil {
			return fmt.Errorf("start publisher: %w", err)
		}
		defer func() { _ = pub.Close() }()
		publisher = pub
	} else {
		logger.Info("RABBITMQ_URL not set, sale events disabled")
	}

	// --- terminal ---
	m := metrics.New()
	receipts := receipt.NewBuilder(cfg.StoreName)
	svc, err := terminal.NewService(
		store,
		checkout.NewEngine(store, logger),
		receipts,
		terminal.Config{Terminal: cfg.TerminalID, TaxRate: cfg.TaxRate},
		logger,
		terminal.WithLedger(ledger),
		terminal.WithPublisher(publisher),
		terminal.WithRecorder(m),
	)
	if err != nil {
		return err
	}

	// --- background jobs ---
	mon := monitor.New(store, m, cfg.LowStockThreshold, logger)
	if err := mon.ScheduleLowStock(cfg.LowStockSchedule); err != nil {
		return err
	}
	if err := mon.ScheduleSessionSweep("@every 1m", svc, cfg.SessionIdleTimeout); err != nil {
		return err
	}
	if _, err := mon.CheckLowStock(ctx); err != nil {
		logger.Warn("initial low stock scan failed", zap.Error(err))
	}
	mon.Start()

	// --- HTTP ---
	h := httpapi.NewHandler(httpapi.Deps{
		Catalog:           store,
		Terminal:          svc,
		Sales:             ledger,
		Receipts:          receipts,
		Auth:              authn,
		Metrics:           m,
		Logger:            logger,
		LowStockThreshold: cfg.LowStockThreshold,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("terminal", cfg.TerminalID))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		logger.Error("http server failed", zap.Error(runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	select {
	case <-mon.Stop().Done():
	case <-shutdownCtx.Done():
	}
	cancel()

	logger.Info("shutdown complete")
	return runErr
}

func postgresStores(pool *pgxpool.Pool) (catalog.Store, sales.Store, sequence.Sequencer) {
	return catalog.NewPostgresCatalog(pool), sales.NewPostgresStore(pool), sequence.NewRepository(pool)
}

func closeConn(conn *amqp.Connection, logger *zap.Logger) {
	if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		logger.Warn("close rabbitmq connection", zap.Error(err))
	}
}
