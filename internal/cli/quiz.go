package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"quizlink-service/internal/infra/sqlstore"
	"quizlink-service/internal/quizfile"
)

// NewQuizCmd groups quiz content commands.
func NewQuizCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Manage quiz content",
	}
	cmd.AddCommand(newQuizImportCmd(configPath))
	return cmd
}

func newQuizImportCmd(configPath *string) *cobra.Command {
	var quizID string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a quiz file and store it in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			quiz, err := quizfile.ReadFile(args[0])
			if err != nil {
				return err
			}
			if quizID != "" {
				quiz.ID = quizID
			}

			targets := migrationTargets(cfg)
			if len(targets) == 0 {
				return errors.New("quiz import needs storage.driver sqlite|postgres or postgres.url")
			}
			target := targets[0]
			if cfg.Quiz.Source == "postgres" {
				target = dbTarget{driver: "postgres", dsn: cfg.Postgres.URL}
			}

			db, err := sqlstore.Open(target.driver, target.dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrate(cmd.Context(), db, logger); err != nil {
				return err
			}
			if err := sqlstore.New(db).SaveQuiz(cmd.Context(), quiz); err != nil {
				return fmt.Errorf("save quiz %s: %w", quiz.ID, err)
			}

			logger.Info("quiz imported", "quiz_id", quiz.ID, "questions", len(quiz.Questions), "driver", target.driver)
			fmt.Fprintln(cmd.OutOrStdout(), quiz.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&quizID, "id", "", "quiz ID (defaults to the file name)")
	return cmd
}
