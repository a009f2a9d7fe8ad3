// Package quizfile reads quizzes from JSON files. Two layouts are accepted: the canonical
// object form of domain.Quiz, and the older array form where every question carries its
// own correct_answer as a letter or an index.
package quizfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"quizlink-service/internal/domain"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

type legacyQuestion struct {
	QuestionNumber int             `json:"questionNumber"`
	QuestionText   string          `json:"questionText"`
	QuestionImages []string        `json:"question_images"`
	Options        []string        `json:"option_with_images_"`
	CorrectAnswer  json.RawMessage `json:"correct_answer"`
}

// Parse decodes a quiz file and validates it. quizID is used when the file does not name
// the quiz itself.
func Parse(data []byte, quizID string) (domain.Quiz, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return domain.Quiz{}, domain.ErrEmptyQuiz
	}

	var (
		quiz domain.Quiz
		err  error
	)
	switch trimmed[0] {
	case '[':
		quiz, err = parseLegacy(trimmed, quizID)
	case '{':
		err = json.Unmarshal(trimmed, &quiz)
		if quiz.ID == "" {
			quiz.ID = quizID
		}
	default:
		err = errors.New("expected a JSON object or array")
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuiz, err)
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func parseLegacy(data []byte, quizID string) (domain.Quiz, error) {
	var questions []legacyQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:        quizID,
		Questions: make([]domain.Question, 0, len(questions)),
		AnswerKey: make(domain.AnswerKey, len(questions)),
	}
	for _, lq := range questions {
		q := domain.Question{
			Number:  lq.QuestionNumber,
			Text:    lq.QuestionText,
			Images:  lq.QuestionImages,
			Options: make([]domain.Option, 0, len(lq.Options)),
		}
		for _, raw := range lq.Options {
			q.Options = append(q.Options, legacyOption(raw))
		}

		idx, err := correctIndex(lq.CorrectAnswer)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("question %d: %w", lq.QuestionNumber, err)
		}
		quiz.Questions = append(quiz.Questions, q)
		quiz.AnswerKey[q.Number] = idx
	}
	return quiz, nil
}

// legacyOption classifies a legacy option string by its file extension.
func legacyOption(raw string) domain.Option {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return domain.ImageOption(strings.TrimSpace(raw))
		}
	}
	return domain.TextOption(raw)
}

func correctIndex(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, errors.New("missing correct_answer")
	}
	var idx int
	if err := json.Unmarshal(raw, &idx); err == nil {
		return idx, nil
	}
	var letter string
	if err := json.Unmarshal(raw, &letter); err != nil {
		return 0, fmt.Errorf("correct_answer must be a letter or an index")
	}
	idx, ok := LetterIndex(letter)
	if !ok {
		return 0, fmt.Errorf("correct_answer %q is not a letter", letter)
	}
	return idx, nil
}

// LetterIndex maps "A".."Z" (any case) to 0..25.
func LetterIndex(letter string) (int, bool) {
	letter = strings.TrimSpace(letter)
	if len(letter) != 1 {
		return 0, false
	}
	c := letter[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	}
	return 0, false
}

// ReadFile parses the quiz at path. The file name without extension is the fallback quiz ID.
func ReadFile(path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(data, id)
}

// DirLoader loads quizzes stored as {dir}/{quizID}.json.
type DirLoader struct {
	dir string
}

func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{dir: dir}
}

func (l *DirLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quizID == "" || strings.ContainsAny(quizID, `/\`) || strings.Contains(quizID, "..") {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	data, err := os.ReadFile(filepath.Join(l.dir, quizID+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("read quiz %s: %w", quizID, err)
	}
	return Parse(data, quizID)
}

// QuizIDs lists the quiz files in the directory.
func (l *DirLoader) QuizIDs(context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
