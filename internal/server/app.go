// Package server builds the onboarding service from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/receptionist-onboarding/internal/api"
	"github.com/JakeFAU/receptionist-onboarding/internal/clock/system"
	"github.com/JakeFAU/receptionist-onboarding/internal/config"
	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
	"github.com/JakeFAU/receptionist-onboarding/internal/dispatcher"
	"github.com/JakeFAU/receptionist-onboarding/internal/fetcher/headless"
	"github.com/JakeFAU/receptionist-onboarding/internal/fetcher/sitemap"
	"github.com/JakeFAU/receptionist-onboarding/internal/hash/sha256"
	"github.com/JakeFAU/receptionist-onboarding/internal/id/uuid"
	"github.com/JakeFAU/receptionist-onboarding/internal/metrics"
	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
	"github.com/JakeFAU/receptionist-onboarding/internal/oracle"
	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
	memorypublisher "github.com/JakeFAU/receptionist-onboarding/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/receptionist-onboarding/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/receptionist-onboarding/internal/queue/memory"
	gcsstorage "github.com/JakeFAU/receptionist-onboarding/internal/storage/gcs"
	localstorage "github.com/JakeFAU/receptionist-onboarding/internal/storage/local"
	memoryStorage "github.com/JakeFAU/receptionist-onboarding/internal/storage/memory"
	pgstore "github.com/JakeFAU/receptionist-onboarding/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/receptionist-onboarding/internal/storage/sqlite"
	"github.com/JakeFAU/receptionist-onboarding/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	jobStore    onboarding.JobStore
	profiles    profile.Store
	blobStore   onboarding.BlobStore
	publisher   onboarding.Publisher
	importer    *onboarding.Importer
	queue       *queueMemory.Queue
	dispatch    *dispatcher.Dispatcher
	apiServer   *api.Server
	readyChecks []api.ReadyFunc

	closers []func(context.Context) error
}

// Build creates the application's dependencies. The caller owns the logger.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("oracle", cfg.Oracle.Provider),
	)

	clock := system.New()
	if err := app.setupDatabase(ctx, clock); err != nil {
		app.closeAll(ctx)
		return nil, err
	}
	if err := app.setupStorage(ctx); err != nil {
		app.closeAll(ctx)
		return nil, err
	}
	if err := app.setupPublisher(ctx); err != nil {
		app.closeAll(ctx)
		return nil, err
	}
	engine, err := app.setupEngine()
	if err != nil {
		app.closeAll(ctx)
		return nil, err
	}

	app.importer = onboarding.NewImporter(
		onboarding.ImporterConfig{
			DefaultMaxPages: cfg.Crawler.MaxPagesDefault,
			DefaultMaxDepth: cfg.Crawler.MaxDepthDefault,
			ExcludePaths:    cfg.Crawler.ExcludePaths,
		},
		engine,
		app.setupOracle(),
		app.profiles,
		cfg.Locale.Build(),
		clock,
		logger.Named("importer"),
	)

	app.queue = queueMemory.NewQueue(cfg.Workers.QueueDepth)
	workerCfg := worker.Config{JobTimeout: cfg.JobTimeout()}
	workers := make([]*worker.Worker, 0, cfg.Workers.Concurrency)
	for i := 0; i < cfg.Workers.Concurrency; i++ {
		workers = append(workers, worker.New(
			app.queue,
			app.jobStore,
			app.importer,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	app.dispatch = dispatcher.New(app.queue, workers, logger.Named("dispatcher"))
	app.apiServer = api.NewServer(
		app.jobStore,
		app.dispatch,
		uuid.NewUUIDGenerator(),
		clock,
		cfg,
		logger.Named("api"),
		api.WithReadyCheck(app.ready),
	)
	return app, nil
}

// Importer exposes the import pipeline for one-shot runs.
func (a *App) Importer() worker.Importer {
	return a.importer
}

// Handler returns the HTTP handler of the API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP and runs the workers until ctx ends or a component fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Workers.Concurrency))
		a.dispatch.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout())
	defer cancel()
	a.Close(closeCtx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// Close releases queues, clients, and database handles.
func (a *App) Close(ctx context.Context) {
	if a.queue != nil {
		a.queue.Close()
	}
	a.closeAll(ctx)
	a.logger.Info("shutdown complete")
}

func (a *App) closeAll(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.cfg.ShutdownTimeout(); d > 0 {
		return d
	}
	return 10 * time.Second
}

func (a *App) ready(ctx context.Context) error {
	for _, check := range a.readyChecks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) setupDatabase(ctx context.Context, clock onboarding.Clock) error {
	switch a.cfg.DB.Driver {
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(ctx, pgstore.Config{
			DSN:             a.cfg.DB.DSN,
			MaxConns:        a.cfg.DB.MaxConns,
			MinConns:        a.cfg.DB.MinConns,
			MaxConnLifetime: time.Duration(a.cfg.DB.MaxConnLifetimeSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		if a.cfg.DB.Migrate {
			if err := pgstore.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("postgres migrate failed: %w", err)
			}
		}
		profiles, err := pgstore.NewProfileStore(pool)
		if err != nil {
			return fmt.Errorf("postgres profile store init failed: %w", err)
		}
		jobs, err := pgstore.NewJobStore(pool, clock)
		if err != nil {
			return fmt.Errorf("postgres job store init failed: %w", err)
		}
		a.profiles, a.jobStore = profiles, jobs
		a.readyChecks = append(a.readyChecks, func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres ping: %w", err)
			}
			return nil
		})
		a.logger.Info("using postgres stores")
	case config.DriverSQLite:
		db, err := sqlitestore.Open(a.cfg.DB.DSN)
		if err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		if a.cfg.DB.Migrate {
			if err := db.Migrate(ctx); err != nil {
				return fmt.Errorf("sqlite migrate failed: %w", err)
			}
		}
		a.profiles = sqlitestore.NewProfileStore(db)
		a.jobStore = sqlitestore.NewJobStore(db, clock)
		a.readyChecks = append(a.readyChecks, db.Ping)
		a.logger.Info("using sqlite stores", zap.String("dsn", a.cfg.DB.DSN))
	default:
		a.profiles = memoryStorage.NewProfileStore()
		a.jobStore = memoryStorage.NewJobStore(clock)
		a.logger.Warn("using in-memory stores, profiles are lost on restart")
	}
	return nil
}

func (a *App) setupStorage(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client init failed: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		blobs, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.blobStore = blobs
		a.logger.Info("using GCS page archive", zap.String("bucket", a.cfg.Storage.GCSBucket))
	case config.BackendLocal:
		blobs, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return fmt.Errorf("local blob store init failed: %w", err)
		}
		a.blobStore = blobs
		a.logger.Info("using local page archive", zap.String("path", a.cfg.Storage.LocalDir))
	case config.BackendMemory:
		a.blobStore = memoryStorage.NewBlobStore()
		a.logger.Info("using in-memory page archive")
	default:
		a.logger.Info("page archive disabled")
	}
	return nil
}

func (a *App) setupPublisher(ctx context.Context) error {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub project configured, chunks stay in memory")
		a.publisher = memorypublisher.New()
		return nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	pub := gcppublisher.New(client.Publisher(a.cfg.PubSub.TopicName))
	a.closers = append(a.closers,
		func(context.Context) error { return client.Close() },
		func(context.Context) error {
			pub.Stop()
			return nil
		},
	)
	a.publisher = pub
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return nil
}

func (a *App) setupEngine() (*crawler.Engine, error) {
	rc := a.cfg.Renderer
	factory := headless.Factory(headless.Config{
		ExecPath:      rc.ExecPath,
		FallbackPaths: rc.FallbackPaths,
		UserAgent:     rc.UserAgent,
		IdleTimeout:   time.Duration(rc.IdleTimeoutSeconds) * time.Second,
		DOMTimeout:    time.Duration(rc.DOMTimeoutSeconds) * time.Second,
		SettleDelay:   time.Duration(rc.SettleDelayMs) * time.Millisecond,
	}, a.logger.Named("renderer"))

	var sitemaps crawler.SitemapSource
	if a.cfg.Sitemap.Enabled {
		sitemaps = sitemap.New(sitemap.Config{
			UserAgent: rc.UserAgent,
			Timeout:   time.Duration(a.cfg.Sitemap.TimeoutSeconds) * time.Second,
			MaxURLs:   a.cfg.Sitemap.MaxURLs,
		})
	}

	var pages crawler.PageSink
	if a.blobStore != nil {
		pages = onboarding.NewPageArchive(a.blobStore, sha256.New(), a.cfg.Storage.Prefix)
	}
	chunks := onboarding.NewChunkPublisher(a.publisher, a.cfg.PubSub.TopicName)

	cc := a.cfg.Crawler
	engine, err := crawler.NewEngine(crawler.Config{
		FanOutCap:        cc.FanOutCap,
		QueueCap:         cc.QueueCap,
		PolitenessDelay:  time.Duration(cc.PolitenessDelayMs) * time.Millisecond,
		ChunkSize:        cc.ChunkSize,
		ChunkOverlap:     cc.ChunkOverlap,
		PriorityPatterns: cc.PriorityPatterns,
	}, factory, sitemaps, pages, chunks, a.logger.Named("crawler"))
	if err != nil {
		return nil, fmt.Errorf("crawler init failed: %w", err)
	}
	return engine, nil
}

func (a *App) setupOracle() oracle.Oracle {
	if a.cfg.Oracle.Provider != config.OracleAnthropic {
		a.logger.Info("generative extraction disabled")
		return oracle.Noop{}
	}
	oc := a.cfg.Oracle
	a.logger.Info("using Anthropic oracle", zap.String("model", oc.Model))
	return oracle.NewAnthropic(oracle.AnthropicConfig{
		APIKey:        oc.APIKey,
		Model:         oc.Model,
		MaxTokens:     int64(oc.MaxTokens),
		MaxInputChars: oc.MaxInputChars,
		BaseURL:       oc.BaseURL,
	}, a.logger.Named("oracle"))
}
