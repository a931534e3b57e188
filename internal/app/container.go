package app

import (
	"context"
	"errors"
	"fmt"

	"match-engine/internal/analytics"
	"match-engine/internal/config"
	"match-engine/internal/database"
	"match-engine/internal/database/migration"
	dbpostgres "match-engine/internal/database/postgres"
	dbsqlite "match-engine/internal/database/sqlite"
	"match-engine/internal/domain/matching"
	"match-engine/internal/guard"
	"match-engine/internal/infrastructure/cache"
	"match-engine/internal/infrastructure/semantic"
	"match-engine/internal/pkg/jwt"
	"match-engine/internal/usecase"
	"match-engine/internal/ws"

	"go.uber.org/zap"
)

// Options toggle the side effects of NewContainer.
type Options struct {
	// Migrate applies pending schema migrations after opening a SQL database.
	Migrate bool
}

type Container struct {
	Config config.Config
	Tuning config.Tuning
	Logger *zap.Logger

	DB       database.DB
	Cache    *cache.Redis
	Hub      *ws.Hub
	Guard    *guard.Guard
	Catalog  *matching.Catalog
	Recorder *analytics.Recorder
	Matching *usecase.Matching
	JWT      jwt.Service
}

func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Tuning: tuning, Logger: logger}

	c.DB, err = OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if c.DB != nil && opts.Migrate {
		applied, err := Migrate(ctx, c.DB, cfg.Database.MigrationsDir)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", zap.Int64s("versions", applied))
		}
	}

	c.Cache = cache.NewRedis(ctx, cfg.Redis, logger)

	if err := c.buildMatching(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	if cfg.Auth.AccessSecret != "" {
		c.JWT = jwt.NewHMACService(cfg.Auth.AccessSecret, cfg.Auth.AccessExpiresIn)
	}

	return c, nil
}

func (c *Container) buildMatching(ctx context.Context) error {
	engine, err := c.Tuning.Engine()
	if err != nil {
		return err
	}

	var similarity matching.SimilarityProvider
	if c.Config.Semantic.GeminiAPIKey != "" {
		p, err := semantic.NewGemini(ctx, c.Config.Semantic, c.Cache, c.Logger)
		if err != nil {
			return fmt.Errorf("semantic provider: %w", err)
		}
		similarity = p
	} else {
		c.Logger.Info("GEMINI_API_KEY not set, semantic strategy uses lexical similarity")
	}

	c.Catalog, err = matching.NewCatalog(engine, c.Tuning.Profiles(), similarity)
	if err != nil {
		return err
	}

	chain, err := c.Tuning.FallbackChain()
	if err != nil {
		return err
	}
	c.Guard, err = guard.New(guard.Config{
		Store:          c.healthStore(),
		Policy:         c.Tuning.BreakerPolicy(),
		Chain:          chain,
		AttemptTimeout: c.Tuning.AttemptTimeout(),
		Logger:         c.Logger,
	})
	if err != nil {
		return err
	}

	c.Hub = ws.NewHub(c.Logger)

	var store analytics.Store = analytics.NewMemoryStore()
	if c.DB != nil {
		store = analytics.NewSQLStore(c.DB)
	}
	c.Recorder = analytics.NewRecorder(analytics.RecorderConfig{
		Store:     store,
		Logger:    c.Logger,
		Notifier:  ws.NewMatchFeed(c.Hub),
		Retention: c.Tuning.Retention(),
	})

	var resultCache usecase.ResultCache
	if c.Cache.Available() {
		resultCache = c.Cache
	}
	c.Matching, err = usecase.NewMatchingUsecase(usecase.MatchingConfig{
		Catalog:     c.Catalog,
		Selector:    c.Tuning.SelectorPolicy(),
		Guard:       c.Guard,
		Recorder:    c.Recorder,
		Cache:       resultCache,
		CacheTTL:    c.Tuning.CacheTTL(),
		Parallelism: c.Tuning.Batch.Parallelism,
		MaxLimit:    c.Tuning.Batch.MaxLimit,
		Logger:      c.Logger,
	})
	return err
}

func (c *Container) healthStore() guard.Store {
	if c.Config.Redis.HealthStore != config.HealthStoreRedis {
		return guard.NewMemoryStore()
	}
	if !c.Cache.Available() {
		c.Logger.Warn("redis unavailable, strategy health kept in memory")
		return guard.NewMemoryStore()
	}
	return guard.NewRedisStore(c.Cache.Client())
}

// OpenDatabase returns nil for the memory driver.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (database.DB, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return nil, nil
	case config.DriverPostgres:
		return dbpostgres.Connect(ctx, cfg)
	case config.DriverSQLite:
		return dbsqlite.Open(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func Migrate(ctx context.Context, db database.DB, dir string) ([]int64, error) {
	if db == nil {
		return nil, errors.New("migrate: no SQL database configured")
	}
	r := migration.Runner{Dir: dir, Dialect: db.Dialect()}
	return r.Run(ctx, db.SQLDB())
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
