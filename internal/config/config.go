package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. QUIZLINK_SERVER_PORT.
const EnvPrefix = "QUIZLINK_"

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Quiz     QuizConfig     `yaml:"quiz" envPrefix:"QUIZ_"`
	Links    LinksConfig    `yaml:"links" envPrefix:"LINKS_"`
	Storage  StorageConfig  `yaml:"storage" envPrefix:"STORAGE_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
	Events   EventsConfig   `yaml:"events" envPrefix:"EVENTS_"`
	Tracing  TracingConfig  `yaml:"tracing" envPrefix:"TRACING_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

type ServerConfig struct {
	Port           string   `yaml:"port" env:"PORT"`
	PublicBaseURL  string   `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	TickInterval   string   `yaml:"tick_interval" env:"TICK_INTERVAL"`
}

type LinksConfig struct {
	DefaultMaxAllowed int `yaml:"default_max_allowed" env:"DEFAULT_MAX_ALLOWED"`
}

type QuizConfig struct {
	// Source is where quiz content is loaded from: file, postgres, store or static.
	Source           string `yaml:"source" env:"SOURCE"`
	Dir              string `yaml:"dir" env:"DIR"`
	TTL              string `yaml:"ttl" env:"TTL"`
	DefaultTimeLimit string `yaml:"default_time_limit" env:"DEFAULT_TIME_LIMIT"`
}

type StorageConfig struct {
	// Driver selects the link and result store: memory, sqlite or postgres.
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	TTL      string `yaml:"ttl" env:"TTL"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"URL"`
}

type EventsConfig struct {
	// Sink is one of log, amqp, posthog or none.
	Sink            string `yaml:"sink" env:"SINK"`
	AMQPURL         string `yaml:"amqp_url" env:"AMQP_URL"`
	AMQPExchange    string `yaml:"amqp_exchange" env:"AMQP_EXCHANGE"`
	PostHogKey      string `yaml:"posthog_key" env:"POSTHOG_KEY"`
	PostHogEndpoint string `yaml:"posthog_endpoint" env:"POSTHOG_ENDPOINT"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Server.TickInterval = "1s"
	cfg.Links.DefaultMaxAllowed = 30
	cfg.Quiz.Source = "file"
	cfg.Quiz.Dir = "quizzes"
	cfg.Quiz.TTL = "10m"
	cfg.Quiz.DefaultTimeLimit = "10m"
	cfg.Storage.Driver = "memory"
	cfg.Redis.TTL = "1h"
	cfg.Events.Sink = "log"
	cfg.Events.AMQPExchange = "quizlink.events"
	cfg.Tracing.ServiceName = "quizlink-service"
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "json"
	return cfg
}

// Load reads YAML config from path, then applies environment overrides. A .env file in the
// working directory is loaded first when present. An empty path skips the YAML layer.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var result *multierror.Error

	if c.Server.Port == "" {
		result = multierror.Append(result, errors.New("server.port is required"))
	}
	if c.Links.DefaultMaxAllowed <= 0 {
		result = multierror.Append(result, errors.New("links.default_max_allowed must be positive"))
	}
	for name, raw := range map[string]string{
		"server.tick_interval":    c.Server.TickInterval,
		"quiz.ttl":                c.Quiz.TTL,
		"quiz.default_time_limit": c.Quiz.DefaultTimeLimit,
		"redis.ttl":               c.Redis.TTL,
	} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			result = multierror.Append(result, fmt.Errorf("%s: invalid duration %q", name, raw))
		}
	}

	switch c.Quiz.Source {
	case "file":
		if c.Quiz.Dir == "" {
			result = multierror.Append(result, errors.New("quiz.dir is required for the file source"))
		}
	case "postgres":
		if c.Postgres.URL == "" {
			result = multierror.Append(result, errors.New("postgres.url is required for the postgres quiz source"))
		}
	case "store":
		if c.Storage.Driver == "memory" {
			result = multierror.Append(result, errors.New("quiz.source store needs a sqlite or postgres storage driver"))
		}
	case "static":
	default:
		result = multierror.Append(result, fmt.Errorf("quiz.source: unknown source %q", c.Quiz.Source))
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("storage.dsn is required for the %s driver", c.Storage.Driver))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}

	switch c.Events.Sink {
	case "log", "none":
	case "amqp":
		if c.Events.AMQPURL == "" {
			result = multierror.Append(result, errors.New("events.amqp_url is required for the amqp sink"))
		}
	case "posthog":
		if c.Events.PostHogKey == "" {
			result = multierror.Append(result, errors.New("events.posthog_key is required for the posthog sink"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("events.sink: unknown sink %q", c.Events.Sink))
	}

	return result.ErrorOrNil()
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
