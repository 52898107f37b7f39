package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/landing/internal/config"
	"github.com/MrSnakeDoc/landing/internal/database"
	"github.com/MrSnakeDoc/landing/internal/datacite"
	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/httpserver"
	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
	"github.com/MrSnakeDoc/landing/internal/landing"
	"github.com/MrSnakeDoc/landing/internal/logger"
	"github.com/MrSnakeDoc/landing/internal/metrics"
	"github.com/MrSnakeDoc/landing/internal/preview"
	"github.com/MrSnakeDoc/landing/internal/redis"
	"github.com/MrSnakeDoc/landing/internal/scheduler"
	"github.com/MrSnakeDoc/landing/internal/store/memory"
	"github.com/MrSnakeDoc/landing/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/landing/internal/store/redis"
	"github.com/MrSnakeDoc/landing/internal/templates"
	"github.com/MrSnakeDoc/landing/internal/version"
)

// kvStore is what both cache backends provide: the rendered page cache,
// the preview draft store and the flush used on template changes.
type kvStore interface {
	landing.Cache
	preview.Store
	scheduler.PageFlusher
	deps.Pinger
}

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	db          *database.DB
	redisClient *goredis.Client
	reloader    *scheduler.TemplateReloader
	gc          *scheduler.GarbageCollector // nil with Redis
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Postgres is the system of record - fail fast if unavailable
	loggerClient.Info("Connecting to PostgreSQL")
	db, err := database.Open(context.Background(), database.Options{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnectTimeout:  cfg.DBConnectTimeout,
		RetryInterval:   cfg.DBRetryInterval,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	if cfg.DBMigrate {
		if err := db.Migrate(); err != nil {
			loggerClient.Errorf("Failed to apply migrations: %v", err)
			os.Exit(1)
		}
	}

	checks := []deps.Check{{Name: "postgres", Pinger: db, Critical: true}}

	// Redis is optional: without it the cache and preview drafts live in-process
	var (
		redisClient *goredis.Client
		kv          kvStore
		gc          *scheduler.GarbageCollector
		cacheMode   string
		previewKey  = preview.DefaultKey
	)
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")
		kv = redisstore.NewStore(redisClient, cfg.CacheTTL)
		cacheMode = "redis"
		previewKey = redisstore.PreviewKey
	} else {
		loggerClient.Warn("REDIS_ADDR not set, using in-process cache (not shared between instances)")
		local := memory.NewStore(cfg.CacheTTL)
		gc = scheduler.NewGarbageCollector(local, loggerClient, cfg.CacheSweepInterval)
		kv = local
		cacheMode = "memory"
	}
	checks = append(checks, deps.Check{Name: "cache", Pinger: kv})

	m := metrics.New()
	registry := templates.NewRegistry(templates.Defaults())
	urls := domain.NewURLBuilder(cfg.PublicBaseURL)

	notifier := datacite.New(datacite.Options{
		Endpoint:      cfg.DataCiteEndpoint,
		Username:      cfg.DataCiteUsername,
		Password:      cfg.DataCitePassword,
		Timeout:       cfg.DataCiteTimeout,
		MaxAttempts:   cfg.DataCiteMaxAttempts,
		RetryInterval: cfg.DataCiteRetryInterval,
	}, urls, loggerClient)
	if !notifier.Configured() {
		loggerClient.Warn("DataCite credentials not set, DOI metadata sync will report failures")
	}

	svc := landing.NewService(landing.Options{
		Pages:     postgres.NewLandingPages(db.DB),
		Resources: postgres.NewResources(db.DB),
		Cache:     kv,
		Renderer:  landing.NewJSONRenderer(),
		Notifier:  notifier,
		Templates: registry,
		URLs:      urls,
		Metrics:   m,
		Logger:    loggerClient,
	})

	previews, err := preview.NewManager(preview.Options{
		Key:     cfg.SessionKey,
		Name:    cfg.SessionName,
		Secure:  cfg.SessionSecure,
		TTL:     cfg.PreviewSessionTTL,
		KeyFunc: previewKey,
	}, kv, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to initialize preview sessions: %v", err)
		os.Exit(1)
	}

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	reloader := scheduler.NewTemplateReloader(
		cfg.TemplatesFile,
		registry,
		kv,
		m,
		loggerClient,
		cfg.TemplatesReloadInterval,
		reloadTrigger,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:              loggerClient,
		StartTime:           time.Now(),
		Version:             version.Version,
		Commit:              version.Commit,
		BuildDate:           version.BuildDate,
		GoVersion:           version.GoVersion,
		TimeNow:             time.Now,
		AllowedHosts:        cfg.AllowedHosts,
		AllowedCIDRS:        cfg.AllowedCIDRS,
		TrustProxy:          cfg.TrustProxy,
		Landing:             svc,
		Previews:            previews,
		Templates:           registry,
		Metrics:             m,
		Checks:              checks,
		CacheMode:           cacheMode,
		ReloadTrigger:       reloadTrigger,
		PublicRateBurst:     cfg.PublicRateBurst,
		PublicRatePerMinute: cfg.PublicRatePerMinute,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		db:          db,
		redisClient: redisClient,
		reloader:    reloader,
		gc:          gc,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting landing v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("landing %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start template reloader (loads the registry and starts periodic refresh)
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start template reloader: %w", err)
	}
	a.logger.Info("template reloader started",
		logger.Duration("interval", a.cfg.TemplatesReloadInterval))

	if a.gc != nil {
		if err := a.gc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start garbage collector: %w", err)
		}
		a.logger.Info("garbage collector started",
			logger.Duration("interval", a.cfg.CacheSweepInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()
	if a.gc != nil {
		a.gc.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.Warnf("failed to close postgres: %v", err)
	} else {
		a.logger.Info("✅ PostgreSQL closed cleanly")
	}

	a.logger.Info("✅ landing stopped cleanly")
	return nil
}
