package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Routing    RoutingConfig
	Expedition ExpeditionConfig
	Cache      CacheConfig
	Log        LogConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RoutingConfig - движок маршрутизации (Directions-совместимый API)
type RoutingConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	RetryBaseWait time.Duration
	// MaxRouteStops - лимит точек на один запрос, длинные маршруты режутся на куски
	MaxRouteStops int
}

type ExpeditionConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryBaseWait time.Duration
}

type CacheConfig struct {
	PolicyCacheTTL time.Duration
	StatsCacheTTL  time.Duration
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled  bool
	TickCron string
	PoolSize int
	// CatchupWindow - насколько просроченные pending-записи ещё подбираются тиком; 0 - только текущая минута
	CatchupWindow     time.Duration
	LockTTL           time.Duration
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	BatchSize         int
	MaxRetries        int
	// MetricsPort - порт /metrics процесса воркера
	MetricsPort int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// в контейнере конфиг приходит только из окружения
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),

			CORSOrigins: viper.GetString("API_CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Routing: RoutingConfig{
			BaseURL:       viper.GetString("ROUTING_BASE_URL"),
			APIKey:        viper.GetString("ROUTING_API_KEY"),
			Timeout:       time.Duration(viper.GetInt("ROUTING_TIMEOUT")) * time.Second,
			MaxRetries:    viper.GetInt("ROUTING_MAX_RETRIES"),
			RetryBaseWait: time.Duration(viper.GetInt("ROUTING_RETRY_BASE_WAIT")) * time.Millisecond,
			MaxRouteStops: viper.GetInt("ROUTING_MAX_ROUTE_STOPS"),
		},
		Expedition: ExpeditionConfig{
			BaseURL:       viper.GetString("EXPEDITION_BASE_URL"),
			Timeout:       time.Duration(viper.GetInt("EXPEDITION_TIMEOUT")) * time.Second,
			MaxRetries:    viper.GetInt("EXPEDITION_MAX_RETRIES"),
			RetryBaseWait: time.Duration(viper.GetInt("EXPEDITION_RETRY_BASE_WAIT")) * time.Millisecond,
		},
		Cache: CacheConfig{
			PolicyCacheTTL: time.Duration(viper.GetInt("POLICY_CACHE_TTL")) * time.Second,
			StatsCacheTTL:  time.Duration(viper.GetInt("STATS_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:           viper.GetBool("WORKER_ENABLED"),
			TickCron:          viper.GetString("WORKER_TICK_CRON"),
			PoolSize:          viper.GetInt("WORKER_POOL_SIZE"),
			CatchupWindow:     time.Duration(viper.GetInt("WORKER_CATCHUP_WINDOW")) * time.Minute,
			LockTTL:           time.Duration(viper.GetInt("WORKER_LOCK_TTL")) * time.Second,
			ConsumerGroup:     viper.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(viper.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			BatchSize:         viper.GetInt("WORKER_BATCH_SIZE"),
			MaxRetries:        viper.GetInt("WORKER_MAX_RETRIES"),
			MetricsPort:       viper.GetInt("WORKER_METRICS_PORT"),
		},
	}

	cfg.applyDefaults()

	return cfg, nil
}

// Set default values if not provided
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Routing.Timeout == 0 {
		c.Routing.Timeout = 15 * time.Second
	}
	if c.Routing.MaxRetries == 0 {
		c.Routing.MaxRetries = 4
	}
	if c.Routing.RetryBaseWait == 0 {
		c.Routing.RetryBaseWait = 200 * time.Millisecond
	}
	if c.Routing.MaxRouteStops == 0 {
		c.Routing.MaxRouteStops = 27
	}
	if c.Expedition.Timeout == 0 {
		c.Expedition.Timeout = 10 * time.Second
	}
	if c.Expedition.MaxRetries == 0 {
		c.Expedition.MaxRetries = 3
	}
	if c.Expedition.RetryBaseWait == 0 {
		c.Expedition.RetryBaseWait = 200 * time.Millisecond
	}
	if c.Cache.PolicyCacheTTL == 0 {
		c.Cache.PolicyCacheTTL = 10 * time.Minute
	}
	if c.Cache.StatsCacheTTL == 0 {
		c.Cache.StatsCacheTTL = 30 * time.Second
	}
	if c.Worker.TickCron == "" {
		c.Worker.TickCron = "* * * * *"
	}
	if c.Worker.PoolSize == 0 {
		c.Worker.PoolSize = 8
	}
	if c.Worker.LockTTL == 0 {
		c.Worker.LockTTL = 5 * time.Minute
	}
	if c.Worker.ConsumerGroup == "" {
		c.Worker.ConsumerGroup = "rerouting-schedulers"
	}
	if c.Worker.StreamReadTimeout == 0 {
		c.Worker.StreamReadTimeout = 1000 * time.Millisecond
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 50
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.MetricsPort == 0 {
		c.Worker.MetricsPort = 9090
	}
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return c.Database.DSN()
}

// DSN - строка подключения в формате key=value для pgx/lib/pq
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.DBName,
		d.SSLMode,
	)
}

// GetDatabaseURL - DSN в виде URL для golang-migrate
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
