package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App        AppConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Semantic   SemanticConfig
	TuningFile string
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver string

	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration

	SQLitePath    string
	MigrationsDir string
}

const (
	HealthStoreMemory = "memory"
	HealthStoreRedis  = "redis"
)

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        string
	Password    string
	TTL         time.Duration
	HealthStore string
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type AuthConfig struct {
	AccessSecret    string
	AccessExpiresIn time.Duration
}

type SemanticConfig struct {
	GeminiAPIKey string
	EmbedModel   string
	Timeout      time.Duration
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment variables")
)

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	var invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}
	optDefault := func(key, def string) string {
		if v := opt(key); v != "" {
			return v
		}
		return def
	}
	optBool := func(key string) bool {
		v := opt(key)
		if v == "" {
			return false
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, key)
		}
		return b
	}
	optInt := func(key string, def int) int {
		v := opt(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			invalid = append(invalid, key)
			return def
		}
		return n
	}
	optDuration := func(key string, def time.Duration) time.Duration {
		v := opt(key)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			invalid = append(invalid, key)
			return def
		}
		return d
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Log = LogConfig{
		JSON:  optBool("LOG_JSON"),
		Debug: optBool("LOG_DEBUG"),
	}

	cfg.Database = DatabaseConfig{
		Driver:                strings.ToLower(optDefault("DB_DRIVER", DriverMemory)),
		DBHost:                opt("DB_HOST"),
		DBPort:                optDefault("DB_PORT", "5432"),
		DBName:                opt("DB_NAME"),
		DBUser:                opt("DB_USER"),
		DBPassword:            opt("DB_PASSWORD"),
		DBSSLMode:             optDefault("DB_SSL_MODE", "disable"),
		ConnectTimeout:        optDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:          int32(optInt("DB_POOL_MAX_CONNS", 0)),
		PoolMinConns:          int32(optInt("DB_POOL_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   optDuration("DB_POOL_MAX_CONN_LIFETIME", 0),
		PoolMaxConnIdleTime:   optDuration("DB_POOL_MAX_CONN_IDLE_TIME", 0),
		PoolHealthCheckPeriod: optDuration("DB_POOL_HEALTH_CHECK_PERIOD", 0),
		SQLitePath:            optDefault("SQLITE_PATH", "data/match-engine.db"),
		MigrationsDir:         opt("MIGRATIONS_DIR"),
	}

	switch cfg.Database.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.Database.DBHost == "" {
			missing = append(missing, "DB_HOST")
		}
		if cfg.Database.DBName == "" {
			missing = append(missing, "DB_NAME")
		}
		if cfg.Database.DBUser == "" {
			missing = append(missing, "DB_USER")
		}
	default:
		invalid = append(invalid, "DB_DRIVER")
	}

	redisHost := opt("REDIS_HOST")
	cfg.Redis = RedisConfig{
		Enabled:     redisHost != "",
		Host:        redisHost,
		Port:        optDefault("REDIS_PORT", "6379"),
		Password:    opt("REDIS_PASSWORD"),
		TTL:         time.Duration(optInt("REDIS_TTL", 600)) * time.Second,
		HealthStore: strings.ToLower(optDefault("HEALTH_STORE", HealthStoreMemory)),
	}
	if cfg.Redis.HealthStore != HealthStoreMemory && cfg.Redis.HealthStore != HealthStoreRedis {
		invalid = append(invalid, "HEALTH_STORE")
	}
	if cfg.Redis.HealthStore == HealthStoreRedis && !cfg.Redis.Enabled {
		missing = append(missing, "REDIS_HOST")
	}

	cfg.Auth = AuthConfig{
		AccessSecret:    opt("JWT_ACCESS_SECRET"),
		AccessExpiresIn: optDuration("JWT_ACCESS_EXPIRES_IN", time.Hour),
	}

	cfg.Semantic = SemanticConfig{
		GeminiAPIKey: opt("GEMINI_API_KEY"),
		EmbedModel:   optDefault("GEMINI_EMBED_MODEL", "text-embedding-004"),
		Timeout:      optDuration("SEMANTIC_TIMEOUT", 1500*time.Millisecond),
	}

	cfg.TuningFile = opt("TUNING_FILE")

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(invalid, ", "))
	}

	return cfg, nil
}
