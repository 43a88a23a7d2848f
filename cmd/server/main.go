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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"custodia/internal/backend/authprovider"
	"custodia/internal/backend/docstore"
	"custodia/internal/backend/objectstore"
	conferenceHandler "custodia/internal/conference/handler"
	conferenceStore "custodia/internal/conference/store"
	"custodia/internal/draft"
	"custodia/internal/identity"
	"custodia/internal/media"
	personHandler "custodia/internal/person/handler"
	personStore "custodia/internal/person/store"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/postgres"
	"custodia/internal/platform/redis"
	httptransport "custodia/internal/transport/http"
)

// main wires backends into the stores and gateways, exposes the HTTP router and
// shuts down gracefully on SIGINT/SIGTERM.
func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Format, cfg.Log.Level)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type infra struct {
	docs    docstore.Store
	redis   *redis.Client
	bucket  objectstore.Bucket
	checks  map[string]httptransport.HealthCheck
	closers []func() error
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	inf, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, closeFn := range inf.closers {
			if err := closeFn(); err != nil {
				log.Warn("failed to close backend", "error", err)
			}
		}
	}()

	var drafts draft.Store = draft.NewMemory()
	var revocations authprovider.RevocationList = authprovider.NewMemoryRevocations(nil)
	if inf.redis != nil {
		drafts = draft.NewRedis(inf.redis.Client, draft.WithTTL(cfg.Draft.TTL))
		revocations = authprovider.NewRedisRevocations(inf.redis.Client)
	}

	var provider authprovider.Provider
	switch cfg.Auth.Driver {
	case "identitytoolkit":
		provider = authprovider.NewIdentityToolkit(cfg.Auth.Endpoint, cfg.Auth.APIKey,
			authprovider.WithToolkitRevocations(revocations))
	default:
		provider = authprovider.NewLocal(inf.docs, cfg.Auth.SigningKey,
			authprovider.WithTokenTTL(cfg.Auth.TokenTTL),
			authprovider.WithRevocations(revocations))
	}

	gateway := identity.New(provider, inf.docs, identity.WithLogger(log), identity.WithMetrics(m))
	photos := media.New(inf.bucket, media.WithLogger(log), media.WithMetrics(m))
	people := personStore.New(inf.docs, personStore.WithLogger(log), personStore.WithMetrics(m))
	conferences := conferenceStore.New(inf.docs, conferenceStore.WithLogger(log), conferenceStore.WithMetrics(m))

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       m,
		Gatherer:      reg,
		Authenticator: gateway,
		Auth:          httptransport.NewAuthHandler(gateway, log),
		Media:         httptransport.NewMediaHandler(photos, log),
		Objects:       httptransport.NewObjectHandler(inf.bucket, cfg.ObjectStore.Bucket, log),
		Protected: []httptransport.RouteRegistrar{
			personHandler.New(people, photos, log),
			conferenceHandler.New(conferences, drafts, log),
		},
		HealthChecks: inf.checks,
	})

	srv := httpserver.New(cfg.Server.Addr, router, log)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting custodia",
			"addr", cfg.Server.Addr,
			"docstore", cfg.Docstore.Driver,
			"objectstore", cfg.ObjectStore.Driver,
			"auth", cfg.Auth.Driver,
			"redis", inf.redis != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	inf := &infra{checks: make(map[string]httptransport.HealthCheck)}

	switch cfg.Docstore.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		inf.closers = append(inf.closers, db.Close)
		store := docstore.NewPostgres(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		inf.docs = store
		inf.checks["postgres"] = db.PingContext
	default:
		log.Warn("using in-memory document store; data is lost on restart")
		inf.docs = docstore.NewMemory()
	}

	urls := objectstore.URLBuilder{PublicURL: cfg.ObjectStore.PublicURL, Bucket: cfg.ObjectStore.Bucket}
	switch cfg.ObjectStore.Driver {
	case "filesystem":
		fs, err := objectstore.NewFilesystem(cfg.ObjectStore.Root, urls)
		if err != nil {
			return nil, err
		}
		inf.bucket = fs
	default:
		inf.bucket = objectstore.NewMemory(urls)
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		inf.redis = rc
		inf.closers = append(inf.closers, rc.Close)
		inf.checks["redis"] = rc.Health
	}
	return inf, nil
}
