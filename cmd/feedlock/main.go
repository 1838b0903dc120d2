package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/config"
	"github.com/kailas-cloud/feedlock/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/feedlock/internal/db/redis"
	"github.com/kailas-cloud/feedlock/internal/domain/strategy"
	logpkg "github.com/kailas-cloud/feedlock/internal/logger"
	"github.com/kailas-cloud/feedlock/internal/metrics"
	analyticsrepo "github.com/kailas-cloud/feedlock/internal/repository/analytics"
	quotarepo "github.com/kailas-cloud/feedlock/internal/repository/quota"
	scorecacherepo "github.com/kailas-cloud/feedlock/internal/repository/scorecache"
	chiTransport "github.com/kailas-cloud/feedlock/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/feedlock/internal/transport/openai"
	classifyuc "github.com/kailas-cloud/feedlock/internal/usecase/classify"
	"github.com/kailas-cloud/feedlock/internal/usecase/decision"
	healthuc "github.com/kailas-cloud/feedlock/internal/usecase/health"
	"github.com/kailas-cloud/feedlock/internal/usecase/maintenance"
	"github.com/kailas-cloud/feedlock/internal/usecase/match"
	quotauc "github.com/kailas-cloud/feedlock/internal/usecase/quota"
	"github.com/kailas-cloud/feedlock/internal/usecase/report"
	scorecacheuc "github.com/kailas-cloud/feedlock/internal/usecase/scorecache"
	"github.com/kailas-cloud/feedlock/internal/version"
)

// stores groups the driver-specific collaborators of the pipeline.
type stores struct {
	cache  scorecacheuc.Store
	quota  quotauc.Store
	pg     *sql.DB
	health *healthuc.Service
	close  []func()
}

func (s *stores) Close() {
	for i := len(s.close) - 1; i >= 0; i-- {
		s.close[i]()
	}
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting feedlock API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("ai_enabled", cfg.AI.Enabled),
	)

	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	// AI classifier (nil interface when disabled, never a typed nil pointer)
	var classifier decision.Classifier
	var aiChecker healthuc.AIChecker
	if cfg.AI.Enabled {
		c := openaiTransport.NewClassifier(&openaiTransport.Config{
			APIKey:            cfg.AI.APIKey,
			BaseURL:           cfg.AI.BaseURL,
			Model:             cfg.AI.Model,
			Temperature:       cfg.AI.Temperature,
			MaxTokens:         cfg.AI.MaxTokens,
			Provider:          cfg.AI.Provider,
			RequestsPerSecond: cfg.AI.RequestsPerSecond,
			Burst:             cfg.AI.Burst,
			Logger:            logger,
		})
		classifier = c
		aiChecker = c
	}

	st, err := openStores(ctx, &cfg, aiChecker, logger)
	if err != nil {
		logger.Fatal("Failed to open stores", zap.Error(err))
	}
	defer st.Close()

	// Pipeline
	policy := quotauc.StoreErrorPolicy(cfg.Quota.OnStoreError)
	cacheSvc := scorecacheuc.New(st.cache, cfg.CacheTTL(), metrics.ScoreCacheTotal, logger)
	enforcer := quotauc.New(st.quota, cfg.QuotaLimits(), policy, logger)
	engine := decision.New(match.New(), classifier, cacheSvc, enforcer, cfg.AITimeout(), logger)

	// Analytics reporter (nil interface when disabled)
	var reporter classifyuc.Reporter
	if cfg.Analytics.Enabled {
		r := report.New(
			buildSink(&cfg, st.pg, logger),
			cfg.Analytics.QueueSize,
			cfg.Analytics.BatchSize,
			time.Duration(cfg.Analytics.FlushIntervalSec)*time.Second,
			logger,
		)
		r.Start()
		defer r.Close()
		reporter = r
	}

	defaultStrategy := strategy.Strategy(cfg.Strategy.Default)
	classifySvc := classifyuc.New(engine, reporter, defaultStrategy)

	server := chiTransport.NewServer(classifySvc, cacheSvc, enforcer, engine, st.health, defaultStrategy)

	// Maintenance
	if cfg.Maintenance.Enabled {
		sched := maintenance.NewScheduler(time.Duration(cfg.Maintenance.JobTimeoutSec)*time.Second, logger)
		err := maintenance.RegisterDefaults(sched, cacheSvc, enforcer, maintenance.Schedules{
			CacheSweep: cfg.Maintenance.CacheSweep,
			QuotaReset: cfg.Maintenance.QuotaReset,
		})
		if err != nil {
			logger.Fatal("Failed to register maintenance jobs", zap.Error(err))
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
		server.WithJobs(sched)
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStores connects the configured driver and builds cache and quota stores on it.
func openStores(ctx context.Context, cfg *config.Config, ai healthuc.AIChecker, logger *zap.Logger) (*stores, error) {
	st := &stores{health: healthuc.New(ai)}

	if cfg.NeedsPostgres() {
		pg, err := postgres.Open(ctx, postgres.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		st.close = append(st.close, func() { _ = pg.Close() })
		if err := postgres.EnsureSchema(ctx, pg); err != nil {
			st.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		st.pg = pg
		st.health.WithStore("postgres", postgres.Pinger{DB: pg})
		logger.Info("Connected to PostgreSQL")
	}

	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		st.close = append(st.close, rs.Close)
		if err := rs.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			st.Close()
			return nil, fmt.Errorf("%s not ready: %w", cfg.Database.Driver, err)
		}
		st.cache = scorecacherepo.NewRedis(rs)
		st.quota = quotarepo.NewRedis(rs)
		st.health.WithStore(cfg.Database.Driver, rs)
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	case config.DriverPostgres:
		st.cache = scorecacherepo.NewPostgres(st.pg)
		st.quota = quotarepo.NewPostgres(st.pg)

	case config.DriverMemory:
		mem, err := scorecacherepo.NewMemory(cfg.Database.MemoryCapacity)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("create memory cache: %w", err)
		}
		st.cache = mem
		st.quota = quotarepo.NewMemory()
		logger.Warn("Using in-process memory stores, state is lost on restart")

	default:
		st.Close()
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	return st, nil
}

// buildSink assembles the analytics sink chain for the configured target.
func buildSink(cfg *config.Config, pg *sql.DB, logger *zap.Logger) report.Sink {
	logSink := report.NewLogSink(logger.Named("analytics"))
	switch cfg.Analytics.Sink {
	case config.SinkPostgres:
		return analyticsrepo.NewSink(pg)
	case config.SinkBoth:
		return report.MultiSink{logSink, analyticsrepo.NewSink(pg)}
	default:
		return logSink
	}
}
