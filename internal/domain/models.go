package domain

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// OptionKind tags what an option carries.
type OptionKind string

const (
	OptionText  OptionKind = "text"
	OptionImage OptionKind = "image"
)

// Option is either a text answer or a reference to an image.
type Option struct {
	Kind     OptionKind `json:"kind" validate:"oneof=text image"`
	Text     string     `json:"text,omitempty" validate:"required_if=Kind text"`
	ImageRef string     `json:"image,omitempty" validate:"required_if=Kind image"`
}

// TextOption builds a text option.
func TextOption(text string) Option {
	return Option{Kind: OptionText, Text: text}
}

// ImageOption builds an image option.
func ImageOption(ref string) Option {
	return Option{Kind: OptionImage, ImageRef: ref}
}

// Question models an MCQ question. Number defines display and answer-key order.
type Question struct {
	Number  int      `json:"number" validate:"gt=0"`
	Text    string   `json:"text"`
	Images  []string `json:"images,omitempty"`
	Options []Option `json:"options" validate:"min=2,dive"`
}

// AnswerKey maps a question number to its correct 0-based option index.
type AnswerKey map[int]int

// Quiz is a published question set with its answer key.
type Quiz struct {
	ID               string     `json:"id" validate:"required"`
	Title            string     `json:"title,omitempty"`
	TimeLimitSeconds int        `json:"timeLimitSeconds,omitempty" validate:"gte=0"`
	Questions        []Question `json:"questions" validate:"dive"`
	AnswerKey        AnswerKey  `json:"answerKey"`
}

// PublicQuiz is what students receive: the questions without the key.
type PublicQuiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title,omitempty"`
	TimeLimitSeconds int        `json:"timeLimitSeconds,omitempty"`
	Questions        []Question `json:"questions"`
}

// Public strips the answer key.
func (q Quiz) Public() PublicQuiz {
	return PublicQuiz{
		ID:               q.ID,
		Title:            q.Title,
		TimeLimitSeconds: q.TimeLimitSeconds,
		Questions:        q.Ordered(),
	}
}

// Ordered returns a copy of the questions sorted by number.
func (q Quiz) Ordered() []Question {
	out := make([]Question, len(q.Questions))
	copy(out, q.Questions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Question looks up a question by number.
func (q Quiz) Question(number int) (Question, bool) {
	for _, question := range q.Questions {
		if question.Number == number {
			return question, true
		}
	}
	return Question{}, false
}

// Validate checks the quiz is well formed and the answer key covers exactly its questions.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrEmptyQuiz
	}
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}

	seen := make(map[int]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if _, dup := seen[question.Number]; dup {
			return fmt.Errorf("%w: duplicate question number %d", ErrInvalidQuiz, question.Number)
		}
		seen[question.Number] = struct{}{}

		idx, ok := q.AnswerKey[question.Number]
		if !ok {
			return fmt.Errorf("%w: answer key missing question %d", ErrInvalidQuiz, question.Number)
		}
		if idx < 0 || idx >= len(question.Options) {
			return fmt.Errorf("%w: answer for question %d is outside its %d options", ErrInvalidQuiz, question.Number, len(question.Options))
		}
	}
	if len(q.AnswerKey) != len(seen) {
		return fmt.Errorf("%w: answer key has entries for unknown questions", ErrInvalidQuiz)
	}
	return nil
}
