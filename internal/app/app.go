// Package app initializes and holds long-lived application services, acting
// as the dependency injection point for both the CLI and the server.
package app

import (
	"context"
	"fmt"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/siteatlas/siteatlas/internal/api"
	"github.com/siteatlas/siteatlas/internal/clock/system"
	"github.com/siteatlas/siteatlas/internal/crawl"
	"github.com/siteatlas/siteatlas/internal/fetcher/headless"
	"github.com/siteatlas/siteatlas/internal/fetcher/static"
	uuidgen "github.com/siteatlas/siteatlas/internal/id/uuid"
	"github.com/siteatlas/siteatlas/internal/progress"
	"github.com/siteatlas/siteatlas/internal/progress/sinks"
	"github.com/siteatlas/siteatlas/internal/publisher"
	pubmemory "github.com/siteatlas/siteatlas/internal/publisher/memory"
	pubgcp "github.com/siteatlas/siteatlas/internal/publisher/pubsub"
	"github.com/siteatlas/siteatlas/internal/queue"
	qmemory "github.com/siteatlas/siteatlas/internal/queue/memory"
	"github.com/siteatlas/siteatlas/internal/screenshot"
	"github.com/siteatlas/siteatlas/internal/session"
	"github.com/siteatlas/siteatlas/internal/storage"
	"github.com/siteatlas/siteatlas/internal/storage/gcs"
	"github.com/siteatlas/siteatlas/internal/storage/local"
	"github.com/siteatlas/siteatlas/internal/storage/memory"
	"github.com/siteatlas/siteatlas/internal/storage/postgres"
	"github.com/siteatlas/siteatlas/internal/store"
	"github.com/siteatlas/siteatlas/internal/worker"
)

// App holds the shared, long-lived services: progress hub, run repository,
// blob storage, queue, worker, and the HTTP server. It is initialized once
// at startup and torn down via Close.
type App struct {
	logger     *zap.Logger
	crawlCfg   crawl.Config
	browserCfg session.Config
	shotCfg    screenshot.Config

	persister *storage.Persister
	repo      store.RunRepository
	registry  *prometheus.Registry
	hub       *progress.Hub
	runQueue  queue.Queue
	worker    *worker.Worker
	server    *api.Server
	pageStore *postgres.PageStore
	pub       publisher.Publisher
	clock     crawl.Clock
	idGen     *uuidgen.Generator

	gcsClient    *gcstorage.Client
	pubsubClient *gcpubsub.Client
}

// New builds the service graph from Viper configuration. It fails fast when
// a configured backend cannot be initialized.
func New(ctx context.Context, v *viper.Viper, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	crawlCfg, err := crawl.LoadConfig(v)
	if err != nil {
		return nil, fmt.Errorf("load crawl config: %w", err)
	}

	a := &App{
		logger:   logger,
		crawlCfg: crawlCfg,
		browserCfg: session.Config{
			Headless:     v.GetBool("browser.headless"),
			UserAgent:    crawlCfg.UserAgent,
			WindowWidth:  v.GetInt("browser.window_width"),
			WindowHeight: v.GetInt("browser.window_height"),
			ExtraHeaders: v.GetStringMapString("browser.extra_headers"),
			ExecPath:     v.GetString("browser.exec_path"),
		},
		shotCfg: screenshot.Config{
			FullPage:            crawlCfg.FullPage,
			SettleDelay:         v.GetDuration("screenshot.settle_delay"),
			TileDelay:           v.GetDuration("screenshot.tile_delay"),
			MaxSettleIterations: v.GetInt("screenshot.max_settle_iterations"),
		},
		clock: system.New(),
		idGen: uuidgen.New(),
	}

	blob, err := a.buildBlobStore(ctx, v)
	if err != nil {
		return nil, err
	}
	a.persister = storage.NewPersister(blob)

	a.repo = store.NewMemoryRunRepository()
	a.registry = prometheus.NewRegistry()

	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	hubSinks := []progress.Sink{
		promSink,
		sinks.NewStoreSink(a.repo, logger),
	}
	if v.GetBool("logging.development") {
		hubSinks = append(hubSinks, sinks.NewLogSink(logger))
	}
	a.hub = progress.NewHub(progress.Config{Logger: logger}, hubSinks...)

	if v.GetBool("database.enabled") {
		pageStore, err := postgres.NewPageStore(ctx, postgres.PageStoreConfig{
			DSN:   v.GetString("database.dsn"),
			Table: v.GetString("database.table"),
		})
		if err != nil {
			return nil, fmt.Errorf("init page store: %w", err)
		}
		a.pageStore = pageStore
	}

	if err := a.buildPublisher(ctx, v); err != nil {
		return nil, err
	}

	a.runQueue = qmemory.NewQueue(v.GetInt("server.queue_capacity"))
	a.worker = worker.New(
		a.runQueue,
		a,
		a.repo,
		a.pub,
		a.clock,
		worker.Config{Topic: v.GetString("publisher.topic")},
		logger,
	)
	a.server = api.NewServer(
		a.runQueue,
		a.repo,
		a.idGen,
		a.clock,
		a.registry,
		api.Config{
			APIKey:          v.GetString("server.api_key"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			DefaultMaxDepth: crawlCfg.MaxDepth,
		},
		logger,
	)

	logger.Info("application services initialized",
		zap.String("storage_provider", v.GetString("storage.provider")),
		zap.String("publisher_provider", v.GetString("publisher.provider")),
		zap.Bool("database_enabled", v.GetBool("database.enabled")),
		zap.String("crawl_mode", crawlCfg.Mode),
	)
	return a, nil
}

func (a *App) buildBlobStore(ctx context.Context, v *viper.Viper) (storage.BlobStore, error) {
	provider := v.GetString("storage.provider")
	switch provider {
	case "local":
		blob, err := local.New(local.Config{BaseDir: v.GetString("storage.local.base_dir")})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return blob, nil
	case "gcs":
		bucket := v.GetString("storage.gcs.bucket")
		if bucket == "" {
			return nil, fmt.Errorf("storage provider is 'gcs' but storage.gcs.bucket is not set")
		}
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.gcsClient = client
		blob, err := gcs.New(client, gcs.Config{
			Bucket: bucket,
			Prefix: v.GetString("storage.gcs.prefix"),
		})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		return blob, nil
	case "memory":
		return memory.NewBlobStore(), nil
	case "noop":
		a.logger.Info("using no-op storage; artifacts will be discarded")
		return storage.NoOpStore{}, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}

func (a *App) buildPublisher(ctx context.Context, v *viper.Viper) error {
	switch provider := v.GetString("publisher.provider"); provider {
	case "pubsub":
		projectID := v.GetString("publisher.gcp.project_id")
		if projectID == "" || v.GetString("publisher.topic") == "" {
			return fmt.Errorf("publisher provider is 'pubsub' but project_id or topic is not set")
		}
		client, err := gcpubsub.NewClient(ctx, projectID)
		if err != nil {
			return fmt.Errorf("init pubsub client: %w", err)
		}
		a.pubsubClient = client
		a.pub = pubgcp.New(client)
	case "memory":
		a.pub = pubmemory.New()
	case "noop":
		a.pub = nil
	default:
		return fmt.Errorf("unknown publisher provider: %s", provider)
	}
	return nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Server returns the HTTP API server.
func (a *App) Server() *api.Server { return a.server }

// Worker returns the run execution loop.
func (a *App) Worker() *worker.Worker { return a.worker }

// Hub returns the progress hub.
func (a *App) Hub() *progress.Hub { return a.hub }

// Repo returns the run repository.
func (a *App) Repo() store.RunRepository { return a.repo }

// Execute implements worker.Runner: it runs one API-submitted crawl whose
// seed doubles as the authority boundary.
func (a *App) Execute(ctx context.Context, req queue.RunRequest) (crawl.Summary, error) {
	maxDepth := a.crawlCfg.MaxDepth
	if req.MaxDepth > 0 {
		maxDepth = req.MaxDepth
	}
	return a.executeRun(ctx, req.RunID, req.SeedURL, req.SeedURL, maxDepth)
}

// RunOnce executes a single configuration-driven crawl and returns its
// summary. Used by the crawl CLI command.
func (a *App) RunOnce(ctx context.Context) (crawl.Summary, error) {
	if err := a.crawlCfg.Validate(); err != nil {
		return crawl.Summary{}, err
	}
	runID, err := a.idGen.NewID()
	if err != nil {
		return crawl.Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	return a.executeRun(ctx, runID, a.crawlCfg.BaseURL, a.crawlCfg.StartURL, a.crawlCfg.MaxDepth)
}

func (a *App) executeRun(ctx context.Context, runID, baseURL, seedURL string, maxDepth int) (crawl.Summary, error) {
	exclusions, err := a.crawlCfg.CompileExclusions()
	if err != nil {
		return crawl.Summary{}, err
	}
	policy, err := crawl.NewPolicy(baseURL, maxDepth, exclusions)
	if err != nil {
		return crawl.Summary{}, fmt.Errorf("build policy: %w", err)
	}

	runUUID, err := uuid.Parse(runID)
	if err != nil {
		return crawl.Summary{}, fmt.Errorf("parse run id: %w", err)
	}

	var (
		fetcher  crawl.Fetcher
		capturer crawl.Capturer
	)
	switch a.crawlCfg.Mode {
	case crawl.ModeBrowser:
		sess, err := session.Launch(a.browserCfg, a.logger)
		if err != nil {
			return crawl.Summary{}, fmt.Errorf("launch browser: %w", err)
		}
		defer sess.Close()
		fetcher = headless.New(sess, headless.Config{
			NavigationTimeout: a.crawlCfg.NavTimeout,
			SettleDelay:       a.crawlCfg.SettleDelay,
			RequestsPerSecond: a.crawlCfg.RequestsPerSecond,
		}, a.logger)
		if a.crawlCfg.Screenshots {
			capturer = screenshot.New(screenshot.NewChromeDriver(sess), a.shotCfg, a.logger)
		}
	case crawl.ModeStatic:
		fetcher = static.New(static.Config{
			UserAgent:    a.crawlCfg.UserAgent,
			Timeout:      a.crawlCfg.NavTimeout,
			ExtraHeaders: a.browserCfg.ExtraHeaders,
		})
	default:
		return crawl.Summary{}, fmt.Errorf("unknown crawl mode %q", a.crawlCfg.Mode)
	}

	orch := crawl.NewOrchestrator(
		progress.UUIDToBytes(runUUID),
		fetcher,
		capturer,
		a.persister,
		policy,
		crawl.NewLedger(),
		a.hub,
		a.clock,
		a.logger,
	)

	summary, runErr := orch.Run(ctx, seedURL)
	a.archiveRecords(ctx, runID, orch.Records())
	return summary, runErr
}

// archiveRecords mirrors the run's page records into Postgres when the
// archive is enabled. Failures are logged, never fatal: the blob artifacts
// and index already exist.
func (a *App) archiveRecords(ctx context.Context, runID string, records []crawl.PageRecord) {
	if a.pageStore == nil {
		return
	}
	archiveCtx := context.WithoutCancel(ctx)
	for _, record := range records {
		if err := a.pageStore.StorePage(archiveCtx, runID, record); err != nil {
			a.logger.Error("archive page failed",
				zap.String("run_id", runID),
				zap.String("url", record.URL),
				zap.Error(err),
			)
		}
	}
}

// Close gracefully shuts down all services.
func (a *App) Close(ctx context.Context) {
	if a.runQueue != nil {
		a.runQueue.Close()
	}
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.pageStore != nil {
		a.pageStore.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	// Best-effort flush; stderr sync errors are expected on some platforms.
	_ = a.logger.Sync()
}
