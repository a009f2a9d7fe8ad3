package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/posthog/posthog-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"quizlink-service/internal/app"
	"quizlink-service/internal/config"
	"quizlink-service/internal/domain"
	"quizlink-service/internal/events"
	"quizlink-service/internal/infra/memory"
	pgloader "quizlink-service/internal/infra/postgres"
	redisinfra "quizlink-service/internal/infra/redis"
	"quizlink-service/internal/infra/sqlstore"
	"quizlink-service/internal/metrics"
	"quizlink-service/internal/quizfile"
	"quizlink-service/internal/workers"
)

// components is the wired application: stores, services and the infrastructure behind them.
type components struct {
	registry   *app.LinkRegistry
	aggregator *app.Aggregator
	attempts   *app.AttemptService
	metrics    *prometheus.Registry
	dispatcher *events.Dispatcher
	sqlStore   *sqlstore.Store
	catalog    app.QuizCatalog

	closers []func() error
}

func buildComponents(ctx context.Context, cfg config.Config, logger *slog.Logger) (*components, error) {
	c := &components{metrics: prometheus.NewRegistry()}
	c.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(c.metrics)

	if err := c.openStorage(ctx, cfg, logger); err != nil {
		c.Close()
		return nil, err
	}
	var (
		links   app.LinkStore
		results app.ResultStore
	)
	if c.sqlStore != nil {
		links, results = c.sqlStore, c.sqlStore
	} else {
		memResults := memory.NewResultStore()
		links, results = memory.NewLinkStore(memResults), memResults
	}

	loader, err := c.quizLoader(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	if catalog, ok := loader.(app.QuizCatalog); ok {
		c.catalog = catalog
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizzes  app.QuizRepository
		attempts app.AttemptRepository
	)
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			c.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		quizzes = redisinfra.NewQuizRepository(client, loader, quizTTL)
		attempts = redisinfra.NewAttemptStore(client, config.TTLDuration(cfg.Redis.TTL, time.Hour))
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
		attempts = memory.NewAttemptStore()
	}

	publishers, err := c.eventPublishers(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.dispatcher = events.NewDispatcher(workers.NewWorker(), logger, m, publishers...)

	c.registry = app.NewLinkRegistry(links, results, quizzes,
		app.WithEvents(c.dispatcher),
		app.WithMetrics(m),
		app.WithDefaultTimeLimit(config.TTLDuration(cfg.Quiz.DefaultTimeLimit, app.DefaultTimeLimit)),
	)
	c.aggregator = app.NewAggregator(results, links)
	c.attempts = app.NewAttemptService(attempts, c.registry, logger)
	return c, nil
}

func (c *components) openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.Storage.Driver == "memory" {
		return nil
	}
	db, err := sqlstore.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, db.Close)
	if err := migrate(ctx, db, logger.With("driver", cfg.Storage.Driver)); err != nil {
		return err
	}
	c.sqlStore = sqlstore.New(db)
	return nil
}

func (c *components) quizLoader(ctx context.Context, cfg config.Config, logger *slog.Logger) (memory.QuizLoader, error) {
	switch cfg.Quiz.Source {
	case "file":
		return quizfile.NewDirLoader(cfg.Quiz.Dir), nil
	case "postgres":
		if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != cfg.Postgres.URL {
			if err := runMigrations(ctx, config.Config{Postgres: cfg.Postgres}, logger); err != nil {
				return nil, err
			}
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.closers = append(c.closers, func() error { pool.Close(); return nil })
		return pgloader.NewQuizLoader(pool), nil
	case "store":
		if c.sqlStore == nil {
			return nil, fmt.Errorf("quiz source store needs a SQL storage driver")
		}
		return c.sqlStore, nil
	default:
		return memory.NewStaticQuizLoader(demoQuizzes()), nil
	}
}

func (c *components) eventPublishers(cfg config.Config, logger *slog.Logger) ([]events.Publisher, error) {
	switch cfg.Events.Sink {
	case "log":
		return []events.Publisher{events.NewLogPublisher(logger)}, nil
	case "amqp":
		publisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.AMQPExchange)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, publisher.Close)
		return []events.Publisher{publisher}, nil
	case "posthog":
		client, err := posthog.NewWithConfig(cfg.Events.PostHogKey, posthog.Config{Endpoint: cfg.Events.PostHogEndpoint})
		if err != nil {
			return nil, fmt.Errorf("create posthog client: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		return []events.Publisher{events.NewPostHogPublisher(client)}, nil
	default:
		return nil, nil
	}
}

// Close waits for in-flight events and releases connections in reverse order of opening.
func (c *components) Close() {
	if c.dispatcher != nil {
		c.dispatcher.Wait()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			slog.Warn("error closing component", "error", err)
		}
	}
	c.closers = nil
}

// demoQuizzes backs the static quiz source.
func demoQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			ID:               "demo",
			Title:            "Warm-up",
			TimeLimitSeconds: 120,
			Questions: []domain.Question{
				{Number: 1, Text: "What is 2 + 2?", Options: []domain.Option{
					domain.TextOption("3"), domain.TextOption("4"), domain.TextOption("5"), domain.TextOption("22"),
				}},
				{Number: 2, Text: "Which gas do plants absorb?", Options: []domain.Option{
					domain.TextOption("Oxygen"), domain.TextOption("Nitrogen"), domain.TextOption("Carbon dioxide"), domain.TextOption("Helium"),
				}},
			},
			AnswerKey: domain.AnswerKey{1: 1, 2: 2},
		},
	}
}
