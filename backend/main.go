package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"medstore/m/internal/api"
	"medstore/m/internal/billing"
	"medstore/m/internal/config"
	"medstore/m/internal/database"
	"medstore/m/internal/inventory"
	"medstore/m/internal/ledger"
	"medstore/m/internal/logger"
	"medstore/m/internal/metrics"
	"medstore/m/internal/migrations"
	"medstore/m/internal/reports"
	"medstore/m/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Env)
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()
	store := inventory.NewStore(fs, cfg.StockFile, log, m)
	if err := store.Lock(); err != nil {
		log.Error("stock file unavailable", "path", cfg.StockFile, "err", err)
		return
	}
	defer store.Unlock()

	inv := inventory.New(store, cfg.IndexCapacity, log, m)
	report, err := inv.Load()
	if err != nil {
		log.Error("stock load failed", "path", cfg.StockFile, "err", err)
		return
	}
	log.Info("stock loaded", "medicines", report.Loaded,
		"skipped", len(report.Skipped), "duplicates", len(report.Duplicates))

	if cfg.SeedCatalog != "" {
		added := seed.LoadCatalog(fs, inv, cfg.SeedCatalog, log)
		log.Info("catalog seeded", "path", cfg.SeedCatalog, "added", added)
	}

	sales := ledger.New(fs, cfg.SalesFile, log)

	db, err := database.Connect(cfg.ReportDSN)
	if err != nil {
		log.Error("report db connect failed", "err", err)
		return
	}
	defer db.Close()
	if err := migrations.Run(db); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	projection := reports.NewProjection(db, log)
	if _, err := projection.Rebuild(ctx, sales.All()); err != nil {
		log.Error("sales projection rebuild failed", "err", err)
		return
	}

	svc := billing.NewService(inv, sales, log, m, billing.WithObserver(projection))

	handler := api.New(api.Deps{
		Inventory:      inv,
		Billing:        svc,
		Ledger:         sales,
		Reports:        projection,
		Metrics:        m,
		Logger:         log,
		ExpiryWarnDays: cfg.ExpiryWarnDays,
		CORSOrigins:    cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("medstore server started", "addr", srv.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
