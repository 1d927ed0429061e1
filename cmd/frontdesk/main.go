package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq"

	"gymdesk/internal/attendance"
	"gymdesk/internal/config"
	"gymdesk/internal/console"
	"gymdesk/internal/directory"
	"gymdesk/internal/enrollment"
	"gymdesk/internal/finance"
	"gymdesk/internal/metrics"
	"gymdesk/internal/store"
	"gymdesk/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalf("failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	recordStore, cleanup, err := buildStore(cfg, m)
	if err != nil {
		log.Fatalf("failed to build record store: %v", err)
	}
	defer cleanup()

	dir := directory.New(recordStore, log, directory.WithWarnDays(cfg.ExpiryWarnDays))
	ledger := attendance.New(recordStore, log, attendance.WithMetrics(m))
	agg := finance.New(recordStore, log)
	enroll := enrollment.NewService(dir, agg, log, enrollment.WithMetrics(m))

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	dir.Load(loadCtx)
	ledger.Load(loadCtx)
	agg.Load(loadCtx)
	cancelLoad()

	handler := console.NewHandler(dir, ledger, agg, enroll, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Mount("/api/v1", handler.Routes())

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		log.Infof("metrics listening on port %s", cfg.MetricsPort)
		if err := http.ListenAndServe(":"+cfg.MetricsPort, metricsMux); err != nil {
			log.WithError(err).Error("metrics server stopped")
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Infof("front desk listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}

	// Let in-flight payment writes settle before the process exits.
	enroll.Drain()
}

func buildStore(cfg *config.Config, m *metrics.Metrics) (store.Store, func(), error) {
	switch cfg.StoreMode {
	case config.StoreModePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store.NewPostgresStore(db), func() { db.Close() }, nil
	case config.StoreModeMemory:
		return store.NewMemoryStore(), func() {}, nil
	default:
		return store.NewRESTStore(cfg.StoreURL, cfg.StoreAPIKey, m), func() {}, nil
	}
}
