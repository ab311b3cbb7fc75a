package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sefa-b/go-bill-ledger/internal/api/middleware"
	v1 "github.com/sefa-b/go-bill-ledger/internal/api/v1"
	"github.com/sefa-b/go-bill-ledger/internal/config"
	"github.com/sefa-b/go-bill-ledger/internal/repository"
	"github.com/sefa-b/go-bill-ledger/internal/service"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
	"github.com/sefa-b/go-bill-ledger/internal/worker"
)

const (
	shutdownTimeout = 5 * time.Second
	auditWorkers    = 2
	auditQueueSize  = 256
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	metricsCollector := utils.NewMetricsCollector()

	shutdownTracer, err := utils.InitTracer(ctx, serviceName, Version, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracer()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.migrate(ctx); err != nil {
		return err
	}

	services := &service.Services{}

	// Redis is optional; without it the ledger runs uncached and unthrottled.
	if cfg.RedisAddr != "" {
		redisClient, err := repository.NewRedisClient(ctx, repository.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			utils.Warn("failed to connect to Redis, running without cache", "error", err.Error())
		} else {
			defer redisClient.Close()
			services.Cache = service.NewCacheService(redisClient, cfg.CacheTTL)
		}
	}

	auditPool := worker.NewPool(worker.NewJobQueue(auditQueueSize), st.repos.Audit)
	auditPool.Start(auditWorkers)

	services.Bill = service.NewBillService(st.repos, service.BillServiceOptions{
		EnforceReferences: cfg.EnforceReferences,
		Cache:             services.Cache,
		Metrics:           metricsCollector,
		AuditQueue:        auditPool,
	})

	mux := http.NewServeMux()
	router := v1.NewRouter(services, st.repos.Health, metricsCollector)
	router.SetAuditStats(auditPool)
	router.RegisterRoutes(mux)

	server := &http.Server{
		Addr: cfg.GetAddr(),
		Handler: middleware.Chain(mux,
			middleware.LoggingMiddleware,
			middleware.TracingMiddleware(serviceName),
			middleware.MetricsMiddleware(metricsCollector),
			middleware.RateLimitMiddleware(services.Cache, cfg.RateLimitRequests, cfg.RateLimitWindow),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.Info("server starting",
			"addr", cfg.GetAddr(),
			"env", cfg.Environment,
			"storage", cfg.StorageDriver,
			"enforce_references", cfg.EnforceReferences,
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		utils.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		// Requests are done; flush their audit records before the store closes.
		return auditPool.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.Error("server stopped with error", "error", err.Error())
		return err
	}

	utils.Info("server stopped gracefully")
	return nil
}
