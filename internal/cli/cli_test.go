package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizlink-service/internal/config"
)

func TestMigrationTargets(t *testing.T) {
	cfg := config.Default()
	assert.Empty(t, migrationTargets(cfg))

	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = "file:quiz.db"
	cfg.Postgres.URL = "postgres://localhost/quiz"
	assert.Equal(t, []dbTarget{
		{driver: "sqlite", dsn: "file:quiz.db"},
		{driver: "postgres", dsn: "postgres://localhost/quiz"},
	}, migrationTargets(cfg))

	cfg.Storage.Driver = "postgres"
	cfg.Storage.DSN = cfg.Postgres.URL
	assert.Len(t, migrationTargets(cfg), 1)
}

func TestQuizImportThenLinkCreate(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "quizlink.db")
	quizPath := filepath.Join(dir, "fractions.json")
	require.NoError(t, os.WriteFile(quizPath, []byte(`[
		{"questionNumber": 1, "questionText": "1/2 + 1/4?", "option_with_images_": ["3/4", "2/6", "1/8", "1"], "correct_answer": "A"},
		{"questionNumber": 2, "questionText": "1/3 of 9?", "option_with_images_": ["1", "3", "6", "9"], "correct_answer": 1}
	]`), 0o600))

	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
quiz:
  source: store
storage:
  driver: sqlite
  dsn: file:`+dbPath+`
events:
  sink: none
log:
  level: ERROR
`), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", configFile, "quiz", "import", quizPath})
	require.NoError(t, root.Execute())
	assert.Equal(t, "fractions", strings.TrimSpace(out.String()))

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", configFile, "link", "create", "--admin", "teacher@example.com", "--quiz", "fractions", "--max", "3"})
	require.NoError(t, root.Execute())
	fields := strings.Fields(out.String())
	require.Len(t, fields, 2)
	assert.True(t, strings.HasSuffix(fields[1], "/quiz/"+fields[0]))

	root = newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", configFile, "link", "create", "--admin", "teacher@example.com", "--quiz", "missing"})
	assert.Error(t, root.Execute())
}
