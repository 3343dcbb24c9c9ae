package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"devconnect/internal/audit"
	authhandler "devconnect/internal/auth/handler"
	"devconnect/internal/auth/lockout"
	authmetrics "devconnect/internal/auth/metrics"
	authservice "devconnect/internal/auth/service"
	"devconnect/internal/auth/store/revocation"
	userstore "devconnect/internal/auth/store/user"
	devhandler "devconnect/internal/developer/handler"
	devmetrics "devconnect/internal/developer/metrics"
	"devconnect/internal/developer/registry"
	devservice "devconnect/internal/developer/service"
	"devconnect/internal/jwttoken"
	"devconnect/internal/platform/config"
	"devconnect/internal/platform/httpserver"
	"devconnect/internal/platform/logger"
	httpmetrics "devconnect/internal/platform/metrics"
	"devconnect/internal/platform/postgres"
	redisclient "devconnect/internal/platform/redis"
	"devconnect/internal/platform/tracing"
	httptransport "devconnect/internal/transport/http"
	"devconnect/internal/workspace"
	"devconnect/pkg/platform/circuit"
	authmw "devconnect/pkg/platform/middleware/auth"
)

const (
	tokenIssuer        = "devconnect"
	auditQueueSize     = 1024
	revocationPurgeGap = 10 * time.Minute
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "devconnect: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(log)
	if cfg.UsingDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set; using the development key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var users authservice.UserStore = userstore.New()
	if db != nil {
		users = userstore.NewPostgres(db)
	}

	var (
		trl      revocation.Store
		pgTRL    *revocation.PostgresTRL
		backends = map[string]httptransport.HealthCheck{}
	)
	switch {
	case rdb != nil:
		latency := promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "devconnect_trl_redis_latency_ms",
			Help:    "Latency of revocation lookups against Redis in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
		})
		resilient := revocation.NewResilientTRL(
			revocation.NewRedisTRL(rdb.Client, revocation.WithLatencyObserver(latency)),
			revocation.NewInMemoryTRL(),
			circuit.New("revocation-redis"),
			log,
		)
		backends["revocation"] = resilient.Health
		trl = resilient
	case db != nil:
		pgTRL = revocation.NewPostgresTRL(db)
		trl = pgTRL
	default:
		trl = revocation.NewInMemoryTRL()
	}
	if db != nil {
		backends["postgres"] = db.PingContext
	}
	if rdb != nil {
		backends["redis"] = rdb.Health
	}

	auditStore := audit.NewInMemoryStore(0)
	auditQueue := audit.NewQueue(auditQueueSize)
	auditWorker := audit.NewWorker(auditStore, auditQueue.Events())

	workspaces := workspace.NewManager(
		workspace.WithTTL(cfg.TokenTTL),
		workspace.WithPageSize(cfg.PageSize),
		workspace.WithIDGenerator(idGenerators(cfg.IDStrategy)),
		workspace.WithLogger(log),
	)

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer)
	authSvc := authservice.New(users, tokens, trl,
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New(reg)),
		authservice.WithAuditPublisher(auditQueue),
		authservice.WithActivityReader(auditStore),
		authservice.WithTokenTTL(cfg.TokenTTL),
		authservice.WithLoginThrottle(lockout.New(
			lockout.WithMaxAttempts(cfg.Lockout.MaxAttempts),
			lockout.WithWindow(cfg.Lockout.Window),
		)),
		authservice.WithSessionDropper(workspaces),
		authservice.WithTracer(tp.Tracer()),
	)
	devSvc := devservice.New(workspaces,
		devservice.WithLogger(log),
		devservice.WithMetrics(devmetrics.New(reg)),
		devservice.WithAuditPublisher(auditQueue),
		devservice.WithTracer(tp.Tracer()),
	)

	validator := jwttoken.NewJWTServiceAdapter(tokens)
	requireAuth := authmw.RequireAuth(validator, trl, log)
	optionalAuth := authmw.OptionalAuth(validator, trl, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        httpmetrics.New(reg),
		Gatherer:       reg,
		RequestTimeout: cfg.RequestTimeout,
		Auth:           authhandler.New(authSvc, log, requireAuth, optionalAuth),
		Developers:     devhandler.New(devSvc, log, cfg.PageSize),
		RequireAuth:    requireAuth,
		Checks:         backends,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting devconnect", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return auditWorker.Run(gctx)
	})
	if pgTRL != nil {
		g.Go(func() error {
			purgeRevocations(gctx, pgTRL, log)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, tp.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}

// idGenerators picks how new developer records are numbered. Sequences start
// after the seeded records.
func idGenerators(strategy string) workspace.IDGeneratorFactory {
	if strategy == config.IDStrategySequence {
		start := int64(len(registry.SeedDevelopers())) + 1
		return func() registry.IDGenerator { return registry.NewSequenceGenerator(start) }
	}
	return func() registry.IDGenerator { return registry.UUIDGenerator{} }
}

func purgeRevocations(ctx context.Context, trl *revocation.PostgresTRL, log *slog.Logger) {
	ticker := time.NewTicker(revocationPurgeGap)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := trl.PurgeExpired(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("failed to purge token revocations", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("purged token revocations", "count", n)
			}
		}
	}
}

