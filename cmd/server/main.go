// Package main runs the reconciliation HTTP service: trigger endpoints for
// recomputing bot aggregates, risk-config validation, and aggregate reads.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bot-reconciler/internal/api"
	"bot-reconciler/internal/config"
	"bot-reconciler/internal/logger"
	"bot-reconciler/internal/observability"
	"bot-reconciler/internal/reconcile"
	"bot-reconciler/internal/storage"
	chstore "bot-reconciler/internal/storage/clickhouse"
	"bot-reconciler/internal/storage/memory"
	"bot-reconciler/internal/storage/migrations"
	pgstore "bot-reconciler/internal/storage/postgres"
)

// stores holds every storage implementation the driver needs.
type stores struct {
	trades    storage.TradeStore
	paper     storage.PaperTradeStore
	positions storage.PositionStore
	bots      storage.BotStore
	snapshots storage.AggregateSnapshotStore
}

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// The logger is not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to create stores", zap.Error(err))
	}
	defer cleanup()

	driver := reconcile.New(reconcile.Options{
		TradeStore:    st.trades,
		PaperStore:    st.paper,
		PositionStore: st.positions,
		BotStore:      st.bots,
		SnapshotStore: st.snapshots,
		Logger:        log,
	})

	svc := api.NewService(driver, st.bots, st.snapshots, observability.DefaultMetrics, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"bot-reconciler"}`))
	})
	r.Handle("/metrics", observability.Handler())
	r.Route("/api/v1", svc.Routes)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutdown signal received, gracefully shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
}

// createStores wires the configured storage backends. use_memory swaps
// everything for the in-memory implementations; an empty clickhouse DSN
// disables snapshot history.
func createStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, func(), error) {
	if cfg.Database.UseMemory {
		log.Warn("using in-memory storage, data will not persist")
		return &stores{
			trades:    memory.NewTradeStore(),
			paper:     memory.NewPaperTradeStore(),
			positions: memory.NewPositionStore(),
			bots:      memory.NewBotStore(),
			snapshots: memory.NewAggregateSnapshotStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	log.Info("connected to postgres")

	st := &stores{
		trades:    pgstore.NewTradeStore(pool),
		paper:     pgstore.NewPaperTradeStore(pool),
		positions: pgstore.NewPositionStore(pool),
		bots:      pgstore.NewBotStore(pool),
	}
	cleanup := func() { pool.Close() }

	if cfg.Clickhouse.DSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		log.Info("connected to clickhouse, snapshot history enabled")
		st.snapshots = chstore.NewAggregateSnapshotStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return st, cleanup, nil
}
