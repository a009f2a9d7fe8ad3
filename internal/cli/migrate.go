package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"quizlink-service/internal/config"
	"quizlink-service/internal/infra/sqlstore"
	"quizlink-service/migrations"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runMigrations(cmd.Context(), cfg, logger)
		},
	}
}

type dbTarget struct {
	driver string
	dsn    string
}

// migrationTargets lists every database the schema belongs in: the SQL link and result
// store, and the Postgres quiz source when it is a different database.
func migrationTargets(cfg config.Config) []dbTarget {
	var targets []dbTarget
	if cfg.Storage.Driver == "sqlite" || cfg.Storage.Driver == "postgres" {
		targets = append(targets, dbTarget{driver: cfg.Storage.Driver, dsn: cfg.Storage.DSN})
	}
	if cfg.Postgres.URL != "" && (cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != cfg.Postgres.URL) {
		targets = append(targets, dbTarget{driver: "postgres", dsn: cfg.Postgres.URL})
	}
	return targets
}

func runMigrations(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	targets := migrationTargets(cfg)
	if len(targets) == 0 {
		return errors.New("no database configured: set storage.driver or postgres.url")
	}
	for _, target := range targets {
		db, err := sqlstore.Open(target.driver, target.dsn)
		if err != nil {
			return err
		}
		err = migrate(ctx, db, logger.With("driver", target.driver))
		_ = db.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func migrate(ctx context.Context, db *bun.DB, logger *slog.Logger) error {
	group, err := migrations.Apply(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.InfoContext(ctx, "no new migrations")
		return nil
	}
	logger.InfoContext(ctx, "migrations applied", "group", group.String())
	return nil
}
