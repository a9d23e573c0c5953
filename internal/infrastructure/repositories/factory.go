package repositories

import (
	"context"
	"errors"

	"sketchroom/internal/core/ports"
	"sketchroom/internal/infrastructure/repositories/memory"
	"sketchroom/internal/infrastructure/repositories/postgres"
	redisrepo "sketchroom/internal/infrastructure/repositories/redis"
	"sketchroom/pkg/circuitbreaker"
	"sketchroom/pkg/config"
	"sketchroom/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RepositoryFactory creates repositories for the configured backend and falls
// back to memory when the backend cannot be reached at startup.
type RepositoryFactory struct {
	backend     string
	redisClient *redis.Client
	db          *gorm.DB
	logger      *zap.SugaredLogger

	// one breaker per durable store; nil when disabled
	redisBreaker    *circuitbreaker.CircuitBreaker
	postgresBreaker *circuitbreaker.CircuitBreaker

	// memory repositories are shared so every caller sees the same data
	memUsers       ports.UserRepository
	memWhiteboards ports.WhiteboardRepository
	memSnapshots   ports.SnapshotRepository
	memSessions    ports.SessionRepository
}

func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		backend: config.StorageMemory,
		logger:  logger,
	}

	connect := retry.Config{
		MaxAttempts:  cfg.Storage.ConnectAttempts,
		InitialDelay: cfg.Storage.ConnectBackoff,
		MaxDelay:     10 * cfg.Storage.ConnectBackoff,
		Multiplier:   2,
		Jitter:       true,
	}
	ctx := context.Background()

	if cfg.Redis.Enabled {
		err := retry.Do(ctx, connect, func(context.Context) error {
			client, err := redisrepo.NewRedisClient(
				cfg.Redis.Address,
				cfg.Redis.Password,
				cfg.Redis.DB,
				cfg.Redis.PoolSize,
				logger,
			)
			if err != nil {
				logger.Debugw("redis connect attempt failed", "error", err)
				return err
			}
			factory.redisClient = client
			return nil
		})
		if err != nil {
			logger.Warnw("failed to connect to Redis", "error", err)
		} else {
			factory.redisBreaker = factory.newBreaker(cfg, config.StorageRedis)
		}
	}

	switch cfg.Storage.Backend {
	case config.StorageRedis:
		if factory.redisClient != nil {
			factory.backend = config.StorageRedis
		}
	case config.StoragePostgres:
		err := retry.Do(ctx, connect, func(context.Context) error {
			db, err := postgres.Open(postgres.Options{
				DSN:             cfg.Postgres.DSN,
				MaxIdleConns:    cfg.Postgres.MaxIdleConns,
				MaxOpenConns:    cfg.Postgres.MaxOpenConns,
				ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			}, logger)
			if err != nil {
				logger.Debugw("postgres connect attempt failed", "error", err)
				return err
			}
			factory.db = db
			return nil
		})
		if err != nil {
			logger.Warnw("failed to connect to PostgreSQL", "error", err)
		} else {
			factory.backend = config.StoragePostgres
			factory.postgresBreaker = factory.newBreaker(cfg, config.StoragePostgres)
		}
	}

	if factory.backend != cfg.Storage.Backend {
		logger.Warnw("storage backend unavailable, falling back to memory repositories",
			"requested", cfg.Storage.Backend,
		)
	}
	logger.Infow("repositories ready", "backend", factory.backend, "redis_sessions", factory.redisClient != nil)

	return factory, nil
}

func (f *RepositoryFactory) newBreaker(cfg *config.Config, store string) *circuitbreaker.CircuitBreaker {
	if cfg.Storage.BreakerThreshold <= 0 {
		return nil
	}
	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.Storage.BreakerThreshold,
		Cooldown:         cfg.Storage.BreakerCooldown,
	})
	cb.OnStateChange(func(from, to circuitbreaker.State) {
		f.logger.Warnw("storage circuit breaker state changed", "store", store, "from", from.String(), "to", to.String())
	})
	return cb
}

// NewMemoryFactory returns a factory that only serves memory repositories.
func NewMemoryFactory(logger *zap.SugaredLogger) *RepositoryFactory {
	return &RepositoryFactory{backend: config.StorageMemory, logger: logger}
}

func (f *RepositoryFactory) Backend() string {
	return f.backend
}

func (f *RepositoryFactory) CreateUserRepository() ports.UserRepository {
	switch f.backend {
	case config.StorageRedis:
		return guardUsers(f.redisBreaker, redisrepo.NewRedisUserRepository(f.redisClient))
	case config.StoragePostgres:
		return guardUsers(f.postgresBreaker, postgres.NewPostgresUserRepository(f.db))
	}
	if f.memUsers == nil {
		f.memUsers = memory.NewMemoryUserRepository()
	}
	return f.memUsers
}

func (f *RepositoryFactory) CreateWhiteboardRepository() ports.WhiteboardRepository {
	switch f.backend {
	case config.StorageRedis:
		return guardWhiteboards(f.redisBreaker, redisrepo.NewRedisWhiteboardRepository(f.redisClient))
	case config.StoragePostgres:
		return guardWhiteboards(f.postgresBreaker, postgres.NewPostgresWhiteboardRepository(f.db))
	}
	if f.memWhiteboards == nil {
		f.memWhiteboards = memory.NewMemoryWhiteboardRepository()
	}
	return f.memWhiteboards
}

func (f *RepositoryFactory) CreateSnapshotRepository() ports.SnapshotRepository {
	switch f.backend {
	case config.StorageRedis:
		return guardSnapshots(f.redisBreaker, redisrepo.NewRedisSnapshotRepository(f.redisClient))
	case config.StoragePostgres:
		return guardSnapshots(f.postgresBreaker, postgres.NewPostgresSnapshotRepository(f.db))
	}
	if f.memSnapshots == nil {
		f.memSnapshots = memory.NewMemorySnapshotRepository()
	}
	return f.memSnapshots
}

// CreateSessionRepository prefers Redis whenever it is connected, so key TTLs
// expire sessions even when whiteboards live in PostgreSQL.
func (f *RepositoryFactory) CreateSessionRepository() ports.SessionRepository {
	if f.redisClient != nil {
		return guardSessions(f.redisBreaker, redisrepo.NewRedisSessionRepository(f.redisClient))
	}
	if f.backend == config.StoragePostgres {
		return guardSessions(f.postgresBreaker, postgres.NewPostgresSessionRepository(f.db))
	}
	if f.memSessions == nil {
		f.memSessions = memory.NewMemorySessionRepository()
	}
	return f.memSessions
}

func (f *RepositoryFactory) Close() error {
	var errs []error
	if f.redisClient != nil {
		errs = append(errs, redisrepo.CloseRedisClient(f.redisClient))
	}
	if f.db != nil {
		errs = append(errs, postgres.Close(f.db))
	}
	return errors.Join(errs...)
}

// HealthCheck pings every connected store.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.redisClient != nil {
		if err := f.redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	if f.db != nil {
		sqlDB, err := f.db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
	}
	return nil
}
