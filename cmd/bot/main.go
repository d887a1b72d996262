package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"

	"github.com/floramarket/florabot/internal/apperr"
	"github.com/floramarket/florabot/internal/database"
	"github.com/floramarket/florabot/internal/dispatch"
	"github.com/floramarket/florabot/internal/flows"
	"github.com/floramarket/florabot/internal/handlers/admin"
	"github.com/floramarket/florabot/internal/handlers/shop"
	"github.com/floramarket/florabot/internal/health"
	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/idempotency"
	"github.com/floramarket/florabot/internal/jobs"
	jobhandlers "github.com/floramarket/florabot/internal/jobs/handlers"
	"github.com/floramarket/florabot/internal/lifecycle"
	"github.com/floramarket/florabot/internal/middleware"
	"github.com/floramarket/florabot/internal/ratelimit"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/internal/transport"
	"github.com/floramarket/florabot/pkg/config"
	"github.com/floramarket/florabot/pkg/graceful"
	"github.com/floramarket/florabot/pkg/logger"
	"github.com/floramarket/florabot/pkg/metrics"
	redisclient "github.com/floramarket/florabot/pkg/redis"
)

const (
	dedupeTTL       = 24 * time.Hour
	cleanerInterval = time.Hour
	shutdownGrace   = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(logger.Options{
		Level:         cfg.Logger.Level,
		Format:        cfg.Logger.Format,
		FilePath:      cfg.Logger.FilePath,
		MaxSizeMB:     cfg.Logger.MaxSizeMB,
		MaxBackups:    cfg.Logger.MaxBackups,
		MaxAgeDays:    cfg.Logger.MaxAgeDays,
		SentryEnabled: cfg.Sentry.Enabled,
	})
	slog.SetDefault(log)

	log.Info("starting florabot", slog.String("env", cfg.AppEnv), slog.String("http_port", cfg.Server.Port))

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	catalog, err := loadCatalog(cfg.I18n)
	if err != nil {
		return fmt.Errorf("load i18n catalog: %w", err)
	}

	florists := repository.NewFloristRepository(db, log)
	shops := repository.NewShopRepository(db, log)
	products := repository.NewProductRepository(db, log)
	orders := repository.NewOrderRepository(db, log)
	customers := repository.NewCustomerRepository(db, log)

	directory := repository.NewShopDirectory(shops)
	registry := tenant.NewRegistry(directory, log)

	sessions := session.NewRedisStore(rdb, cfg.Session.TTL, log)
	idemStore := idempotency.NewRedisStore(rdb, log)
	idem := idempotency.NewManager(idemStore, log)
	carts := shop.NewCartStore(rdb, log)

	asynqOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	queue := jobs.NewManager(asynqOpt, log)

	adminHandlers := admin.New(florists, shops, catalog, queue, log)
	adminRegistry := adminHandlers.Registry(
		flows.NewRegistrationFlow(florists, catalog, log),
		flows.NewShopSetupFlow(shops, catalog, log),
	)

	shopHandlers := shop.New(shops, products, orders, customers, carts, catalog, log)
	shopRegistry := shopHandlers.Registry(
		shop.NewOrderWebApp(shopHandlers, idem, log),
	)

	dispatcher := dispatch.NewDispatcher(map[tenant.BotKind]*dispatch.Registry{
		tenant.KindAdmin:  adminRegistry,
		tenant.KindTenant: shopRegistry,
	}, admin.NewAuthPredicate(florists, log), log)

	limiter := ratelimit.NewAdaptiveLimiter(
		ratelimit.NewRedisLimiter(rdb, log),
		ratelimit.NewMemoryLimiter(log),
		log,
	)
	rules := ratelimit.NewRules(cfg.Limits)

	// Connection settings need a restart; only rate limits apply live.
	config.Watch(v, log, func(fresh *config.Config) {
		rules.Update(fresh.Limits)
	})

	engine := dispatch.NewEngine(registry, sessions, dispatcher, apperr.NewHandler(log, cfg.Sentry.Enabled), log,
		middleware.TurnLogging(log),
		middleware.Dedupe(idemStore, dedupeTTL, log),
		middleware.RateLimit(limiter, rules, log),
	)

	fleet := transport.NewManager(cfg.Bot, engine, registry, log)
	adminHandlers.AttachFleet(fleet)
	if err := fleet.Start(ctx); err != nil {
		return fmt.Errorf("start bot fleet: %w", err)
	}

	worker := jobs.NewWorker(asynqOpt, map[string]int{
		jobs.QueueCritical: 6,
		jobs.QueueDefault:  3,
		jobs.QueueLow:      1,
	}, cfg.Jobs.Concurrency, log)
	worker.RegisterHandler(jobs.TaskTypeSessionSweep, jobhandlers.NewSessionSweepHandler(sessions, directory, log))
	worker.RegisterHandler(jobs.TaskTypeBroadcast, jobhandlers.NewBroadcastHandler(shops, customers, fleet, log))

	scheduler := jobs.NewScheduler(asynqOpt, log)

	if cfg.Jobs.Enabled {
		go func() {
			if err := worker.Run(); err != nil {
				log.Error("jobs worker stopped", slog.Any("error", err))
			}
		}()

		if err := scheduler.RegisterSweep(cfg.Jobs.SweepCron, cfg.Session.InactivityWindow); err != nil {
			return fmt.Errorf("register session sweep: %w", err)
		}
		scheduler.Run()
	}

	go ratelimit.NewCleaner(rdb, log, cleanerInterval).Run(ctx)
	go idempotency.NewCleaner(rdb, log, cleanerInterval).Run(ctx)

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(rdb))
	checker.AddCheck("fleet", health.NewFleetChecker(fleet))
	probes := lifecycle.NewProbes(checker, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health/live", probes.LivenessHandler())
	mux.Handle("/health/ready", probes.ReadinessHandler())

	httpSrv := graceful.NewServer(log, &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: mux,
	}, cfg.Server.ShutdownTimeout)

	go func() {
		if err := httpSrv.ListenAndServe(ctx); err != nil {
			log.Error("http server stopped", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("bot-fleet", func(context.Context) error {
		fleet.Stop()
		return nil
	})
	if cfg.Jobs.Enabled {
		shutdown.Register("scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
		shutdown.Register("jobs-worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})
	}
	shutdown.Register("jobs-client", func(context.Context) error {
		return queue.Close()
	})
	shutdown.Register("redis", func(context.Context) error {
		return rdb.Close()
	})
	shutdown.Register("postgres", func(context.Context) error {
		return db.Close()
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}

func loadCatalog(cfg config.I18nConfig) (*i18n.Catalog, error) {
	if cfg.Dir != "" {
		return i18n.LoadDir(cfg.Dir, cfg.DefaultLanguage)
	}
	return i18n.Load(cfg.DefaultLanguage)
}
