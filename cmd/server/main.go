// The server binary exposes the supplier onboarding API: registration and
// document uploads for vendors, the review and expiry surfaces for admins.
// Background work (sweeps, relays, purges) lives in cmd/sweeper.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"vendorhub/internal/document"
	documenthandler "vendorhub/internal/document/handler"
	"vendorhub/internal/expiry"
	expiryhandler "vendorhub/internal/expiry/handler"
	"vendorhub/internal/jwttoken"
	"vendorhub/internal/platform/config"
	"vendorhub/internal/platform/httpserver"
	"vendorhub/internal/platform/logger"
	"vendorhub/internal/platform/metrics"
	"vendorhub/internal/platform/middleware"
	"vendorhub/internal/platform/postgres"
	"vendorhub/internal/platform/redis"
	"vendorhub/internal/supplier"
	supplierhandler "vendorhub/internal/supplier/handler"
	"vendorhub/internal/trail"
	trailhandler "vendorhub/internal/trail/handler"
	txpkg "vendorhub/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New("vendorhub-server", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()
	runner := txpkg.NewSQLRunner(db)

	trailStore := trail.NewPostgresStore(db)
	recorder := trail.NewRecorder(trailStore, trailStore, log, m, trail.WithOutbox(trailStore))

	supplierStore := supplier.NewPostgresStore(db)
	documentStore := document.NewPostgresStore(db)
	alertStore := expiry.NewPostgresAlertStore(db)

	expiryService := expiry.NewService(alertStore, documentStore, recorder, runner, log, m)
	supplierService := supplier.NewService(supplierStore, recorder, runner, log)
	documentService := document.NewService(documentStore, supplierService, recorder, expiryService, runner, log)

	var cacheClient *goredis.Client
	if redisClient != nil {
		cacheClient = redisClient.Client
	}
	dashboard := expiry.NewDashboardCache(expiryService, cacheClient, cfg.Redis.CacheTTL, log)

	validator := jwttoken.NewJWTService(cfg.JWTSigningKey, "vendorhub")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	supplierhandler.New(supplierService, validator, log).Register(router)
	documenthandler.New(documentService, validator, log).Register(router)
	expiryhandler.New(expiryService, dashboard, validator, log).Register(router)
	trailhandler.New(recorder, validator, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
