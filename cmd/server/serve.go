package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MindFlow-Startup/MindFlow/internal/audit"
	"github.com/MindFlow-Startup/MindFlow/internal/platform/config"
	"github.com/MindFlow-Startup/MindFlow/internal/platform/httpserver"
	"github.com/MindFlow-Startup/MindFlow/internal/platform/kafka"
	"github.com/MindFlow-Startup/MindFlow/internal/platform/logger"
	platformmetrics "github.com/MindFlow-Startup/MindFlow/internal/platform/metrics"
	"github.com/MindFlow-Startup/MindFlow/internal/platform/middleware"
	"github.com/MindFlow-Startup/MindFlow/internal/platform/postgres"
	"github.com/MindFlow-Startup/MindFlow/internal/platform/redis"
	"github.com/MindFlow-Startup/MindFlow/internal/platform/tracing"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/handler"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/metrics"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/service"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/store"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/validation"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard/draft"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/httputil"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/middleware/metadata"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/middleware/requesttime"
)

const auditQueueSize = 1024

func newServeCommand(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg)

	shutdownTracing, err := tracing.Setup(cfg.Tracing, os.Stdout)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	reg := platformmetrics.NewRegistry()
	directoryMetrics := metrics.New(reg)

	records, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeStore()

	validator, err := buildValidator(cfg.Validation)
	if err != nil {
		return err
	}

	auditStore, closeAudit, err := openAuditSink(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	queue := audit.NewQueue(auditQueueSize)
	worker := audit.NewWorker(auditStore, queue.Events(), log)

	svc, err := service.New(records, validator,
		service.WithLogger(log),
		service.WithAuditPublisher(queue),
		service.WithMetrics(directoryMetrics),
	)
	if err != nil {
		return fmt.Errorf("create registration service: %w", err)
	}
	controller, err := wizard.NewController(validator, svc,
		wizard.WithLogger(log),
		wizard.WithMetrics(directoryMetrics),
		wizard.WithAuditPublisher(queue),
	)
	if err != nil {
		return fmt.Errorf("create wizard controller: %w", err)
	}

	drafts, closeDrafts, err := openDraftStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDrafts()

	router := newRouter(log, reg, handler.New(svc, validator, controller, drafts, log))
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting mindflow",
		"addr", cfg.Server.Addr,
		"store", cfg.Store.Driver,
		"environment", cfg.Environment,
	)

	err = runServices(ctx, func(ctx context.Context) error {
		return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
	}, queue, worker)
	if err != nil {
		return err
	}
	log.Info("mindflow stopped")
	return nil
}

// runServices runs the HTTP server and the audit worker until ctx ends. The
// queue is closed only after serveHTTP returns, so events from requests that
// were still in flight reach the worker, which exits once it has flushed them.
func runServices(ctx context.Context, serveHTTP func(context.Context) error, queue *audit.Queue, worker *audit.Worker) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer queue.Close()
		return serveHTTP(gctx)
	})
	g.Go(func() error {
		if err := worker.Run(context.WithoutCancel(gctx)); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}

func newRouter(log *slog.Logger, reg *prometheus.Registry, h *handler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(platformmetrics.NewHTTP(reg)))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", platformmetrics.Handler(reg))
	h.Register(r)
	return r
}

func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (service.Store, func(), error) {
	switch cfg.Driver {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store.NewPostgres(db), closeDB(db, log), nil
	case config.StoreSQLite:
		db, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store.NewSQLite(db), closeDB(db, log), nil
	default:
		return store.NewInMemory(), func() {}, nil
	}
}

func closeDB(db *sql.DB, log *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn("database close failed", "error", err)
		}
	}
}

func buildValidator(cfg config.ValidationConfig) (*validation.Validator, error) {
	vocab := validation.DefaultVocabulary()
	if cfg.SpecialtiesFile != "" {
		loaded, err := validation.LoadVocabulary(cfg.SpecialtiesFile)
		if err != nil {
			return nil, fmt.Errorf("load specialties: %w", err)
		}
		vocab = loaded
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return validation.New(
		validation.WithStrictCRP(cfg.StrictCRP),
		validation.WithLocation(loc),
		validation.WithVocabulary(vocab, cfg.SpecialtiesRestricted),
		validation.WithMinimumAge(cfg.MinimumAge),
	), nil
}

func openAuditSink(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (audit.Store, func(), error) {
	client, err := kafka.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return audit.NewLogStore(log), func() {}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Topic); err != nil {
		client.Close()
		return nil, nil, err
	}
	return audit.NewKafkaStore(client, cfg.Topic), client.Close, nil
}

func openDraftStore(ctx context.Context, cfg config.Config, log *slog.Logger) (handler.DraftStore, func(), error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return draft.NewInMemory(cfg.Wizard.DraftTTL), func() {}, nil
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	return draft.NewRedis(client.Client, cfg.Wizard.DraftTTL), closeFn, nil
}
