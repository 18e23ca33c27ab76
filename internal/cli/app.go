package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/agroflow/internal/config"
	"github.com/fastygo/agroflow/internal/infrastructure/localstore"
	"github.com/fastygo/agroflow/internal/infrastructure/metrics"
	"github.com/fastygo/agroflow/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/agroflow/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/agroflow/internal/infrastructure/redis"
	"github.com/fastygo/agroflow/internal/services"
	"github.com/fastygo/agroflow/internal/services/lifecycle"
	"github.com/fastygo/agroflow/pkg/logger"
	"github.com/fastygo/agroflow/repository"
	"github.com/fastygo/agroflow/repository/memory"
	pgRepo "github.com/fastygo/agroflow/repository/postgres"
	redisRepo "github.com/fastygo/agroflow/repository/redis"
	"github.com/fastygo/agroflow/usecase"
	"github.com/fastygo/agroflow/usecase/farm"
)

// stage is how far bootstrap goes. Each stage includes the previous ones.
type stage int

const (
	stageLocal stage = iota
	stageSync
	stageStore
)

// app is the wired component graph shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	life    *lifecycle.Manager

	local   usecase.LocalStore
	remote  repository.RemoteStore
	monitor *monitor.Monitor
	engine  *services.SyncEngine
	store   *farm.Store
}

func loadConfig(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if opts != nil && opts.LogLevel != "" {
		cfg.Logger.Level = opts.LogLevel
	}
	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		File:     cfg.Logger.File,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, zapLogger, nil
}

// bootstrap opens components up to the requested stage and registers each
// one with the lifecycle manager so close() releases them in reverse order.
func bootstrap(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger, upTo stage) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  zapLogger,
		metrics: metrics.New(),
		life:    lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger),
	}

	local, err := localstore.Open(cfg.LocalStore.Driver, cfg.LocalStore.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.local = local
	a.life.RegisterCloser("local_store", local.Close)
	zapLogger.Info("local store opened",
		zap.String("driver", cfg.LocalStore.Driver),
		zap.String("path", cfg.LocalStore.Path))
	if upTo == stageLocal {
		return a, nil
	}

	remote, err := a.openRemote(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.remote = remote
	a.monitor = monitor.New(remote, local, cfg.Sync.MonitorInterval, zapLogger)
	a.engine = services.NewSyncEngine(local, remote, a.monitor, a.metrics, zapLogger, services.EngineConfig{
		RemoteTimeout: cfg.Sync.RemoteTimeout,
	})
	if upTo == stageSync {
		return a, nil
	}

	policy, err := farm.ParsePolicy(cfg.LocalStore.ErrorPolicy)
	if err != nil {
		a.close()
		return nil, err
	}
	store, err := farm.Open(ctx, farm.Deps{
		Local:   local,
		Syncer:  a.engine,
		Logger:  zapLogger,
		Metrics: a.metrics,
	}, farm.Options{Policy: policy})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open domain store: %w", err)
	}
	a.store = store
	return a, nil
}

// openRemote connects the configured backend. Unreachable servers are not an
// error; the monitor reports them as offline.
func (a *app) openRemote(ctx context.Context) (repository.RemoteStore, error) {
	cfg := a.cfg
	switch cfg.Sync.RemoteDriver {
	case config.RemotePostgres:
		if err := pgInfra.RunMigrations(cfg.Database, cfg.Migrations, a.logger); err != nil {
			a.logger.Warn("remote migrations skipped", zap.Error(err))
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, a.logger)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.life.Register("postgres", func(context.Context) error {
			pool.Close()
			return nil
		})
		return pgRepo.NewRemoteRepository(pool), nil
	case config.RemoteRedis:
		client, err := redisInfra.NewClient(cfg.Redis, a.logger)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.life.RegisterCloser("redis", client.Close)
		return redisRepo.NewRemoteRepository(client, cfg.Redis.KeyPrefix), nil
	default:
		a.logger.Warn("using in-memory remote backend; data is not shared")
		return memory.NewRemoteStore(), nil
	}
}

func (a *app) close() {
	if err := a.life.Shutdown(context.Background()); err != nil {
		a.logger.Error("graceful shutdown error", zap.Error(err))
	}
	_ = a.logger.Sync()
}
