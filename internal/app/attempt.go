package app

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"quizlink-service/internal/domain"
)

// AttemptState is the lifecycle position of an attempt.
type AttemptState string

const (
	AttemptNotStarted AttemptState = "not_started"
	AttemptInProgress AttemptState = "in_progress"
	AttemptSubmitted  AttemptState = "submitted"
)

// PaletteStatus is how a question appears in the question palette.
type PaletteStatus string

const (
	PaletteCurrent        PaletteStatus = "current"
	PaletteAnsweredMarked PaletteStatus = "answered-marked"
	PaletteAnswered       PaletteStatus = "answered"
	PaletteMarked         PaletteStatus = "marked"
	PaletteNotAnswered    PaletteStatus = "not-answered"
)

// PaletteEntry is one cell of the question palette.
type PaletteEntry struct {
	QuestionNumber int           `json:"questionNumber"`
	Status         PaletteStatus `json:"status"`
}

// Progress counts answered and marked questions.
type Progress struct {
	Answered        int `json:"answered"`
	Marked          int `json:"marked"`
	Remaining       int `json:"remaining"`
	PercentComplete int `json:"percentComplete"`
}

// AttemptView is a read-only snapshot of an attempt, safe to hand to clients.
type AttemptView struct {
	AttemptID        string                 `json:"attemptId"`
	QuizID           string                 `json:"quizId"`
	LinkID           string                 `json:"linkId"`
	Student          domain.StudentIdentity `json:"student"`
	State            AttemptState           `json:"state"`
	CurrentIndex     int                    `json:"currentIndex"`
	CurrentQuestion  *domain.Question       `json:"currentQuestion,omitempty"`
	TotalQuestions   int                    `json:"totalQuestions"`
	RemainingSeconds int                    `json:"remainingSeconds"`
	ElapsedSeconds   int                    `json:"elapsedSeconds"`
	Answers          map[int]int            `json:"answers"`
	Marked           []int                  `json:"marked"`
	FirstAnsweredAt  map[int]int            `json:"firstAnsweredAt"`
	Palette          []PaletteEntry         `json:"palette"`
	Progress         Progress               `json:"progress"`
}

// AttemptOwner ties an attempt to the link and student it was admitted for.
type AttemptOwner struct {
	LinkID  string
	Student domain.StudentIdentity
}

// Key identifies the owner across attempts.
func (o AttemptOwner) Key() string {
	return strconv.Itoa(len(o.LinkID)) + ":" + o.LinkID + o.Student.Key()
}

// AttemptUpdate is pushed to subscribers after every change. Score is set once the
// attempt has been recorded; Err carries a terminal recording failure.
type AttemptUpdate struct {
	View  AttemptView          `json:"view"`
	Score *domain.ScoreSummary `json:"score,omitempty"`
	Err   error                `json:"-"`
}

// Attempt is one student's timed pass through a quiz. All methods are safe for concurrent use;
// the clock goroutine and the student's actions are serialized on the attempt's mutex.
type Attempt struct {
	id    string
	owner AttemptOwner
	now   func() time.Time

	mu            sync.Mutex
	state         AttemptState
	quizID        string
	questions     []domain.Question
	positions     map[int]int
	answers       map[int]int
	marked        map[int]struct{}
	timeSpent     map[int]int
	firstAnswered map[int]int
	current       int
	timeLimit     int
	remaining     int
	startedAt     time.Time
	subscribers   map[chan AttemptUpdate]struct{}
}

// NewAttempt creates an attempt in the NotStarted state.
func NewAttempt(id string, owner AttemptOwner) *Attempt {
	return NewAttemptWithClock(id, owner, time.Now)
}

// NewAttemptWithClock allows deterministic timestamps in tests.
func NewAttemptWithClock(id string, owner AttemptOwner, now func() time.Time) *Attempt {
	return &Attempt{
		id:          id,
		owner:       owner,
		now:         now,
		state:       AttemptNotStarted,
		subscribers: make(map[chan AttemptUpdate]struct{}),
	}
}

func (a *Attempt) ID() string { return a.id }

func (a *Attempt) Owner() AttemptOwner { return a.owner }

// State returns the current lifecycle state.
func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start loads the quiz and starts the countdown. The quiz's own time limit wins over
// defaultLimit when set.
func (a *Attempt) Start(quiz *domain.Quiz, defaultLimit time.Duration) error {
	if quiz == nil {
		return domain.ErrQuizNotFound
	}
	if len(quiz.Questions) == 0 {
		return domain.ErrEmptyQuiz
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AttemptNotStarted {
		return domain.ErrInvalidState
	}

	limit := quiz.TimeLimitSeconds
	if limit <= 0 {
		limit = int(defaultLimit / time.Second)
	}
	if limit <= 0 {
		limit = 1
	}

	a.quizID = quiz.ID
	a.questions = quiz.Ordered()
	a.positions = make(map[int]int, len(a.questions))
	for i, q := range a.questions {
		a.positions[q.Number] = i
	}
	a.answers = make(map[int]int)
	a.marked = make(map[int]struct{})
	a.timeSpent = make(map[int]int)
	a.firstAnswered = make(map[int]int)
	a.current = 0
	a.timeLimit = limit
	a.remaining = limit
	a.startedAt = a.now()
	a.state = AttemptInProgress
	a.broadcastLocked()
	return nil
}

// SelectAnswer records optionIndex for questionNumber, replacing any earlier choice.
// The first selection for a question is timestamped once; later re-selections never
// move that timestamp, even after ClearAnswer.
func (a *Attempt) SelectAnswer(questionNumber, optionIndex int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case AttemptNotStarted:
		return domain.ErrInvalidState
	case AttemptSubmitted:
		return nil
	}

	pos, ok := a.positions[questionNumber]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if optionIndex < 0 || optionIndex >= len(a.questions[pos].Options) {
		return domain.ErrOptionOutOfRange
	}

	a.answers[questionNumber] = optionIndex
	if _, seen := a.firstAnswered[questionNumber]; !seen {
		a.firstAnswered[questionNumber] = a.timeLimit - a.remaining
	}
	a.broadcastLocked()
	return nil
}

// ToggleReviewMark flips the review flag of a question.
func (a *Attempt) ToggleReviewMark(questionNumber int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case AttemptNotStarted:
		return domain.ErrInvalidState
	case AttemptSubmitted:
		return nil
	}
	if _, ok := a.positions[questionNumber]; !ok {
		return domain.ErrQuestionNotFound
	}

	if _, marked := a.marked[questionNumber]; marked {
		delete(a.marked, questionNumber)
	} else {
		a.marked[questionNumber] = struct{}{}
	}
	a.broadcastLocked()
	return nil
}

// ClearAnswer removes the answer for a question, if any.
func (a *Attempt) ClearAnswer(questionNumber int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case AttemptNotStarted:
		return domain.ErrInvalidState
	case AttemptSubmitted:
		return nil
	}
	if _, ok := a.answers[questionNumber]; ok {
		delete(a.answers, questionNumber)
		a.broadcastLocked()
	}
	return nil
}

// NavigateTo moves the question pointer, clamping out-of-range indexes.
func (a *Attempt) NavigateTo(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AttemptInProgress {
		return
	}
	a.current = clamp(index, 0, len(a.questions)-1)
	a.broadcastLocked()
}

// Next moves to the following question; it stays on the last one.
func (a *Attempt) Next() {
	a.mu.Lock()
	idx := a.current + 1
	a.mu.Unlock()
	a.NavigateTo(idx)
}

// Previous moves to the preceding question; it stays on the first one.
func (a *Attempt) Previous() {
	a.mu.Lock()
	idx := a.current - 1
	a.mu.Unlock()
	a.NavigateTo(idx)
}

// Tick consumes one second of the time budget and charges it to the question on screen.
// When the budget runs out the attempt is submitted without confirmation and the frozen
// submission is returned with expired=true.
func (a *Attempt) Tick() (submission domain.Submission, expired bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != AttemptInProgress {
		return domain.Submission{}, false
	}

	a.remaining--
	a.timeSpent[a.questions[a.current].Number]++
	if a.remaining > 0 {
		a.broadcastLocked()
		return domain.Submission{}, false
	}
	return a.freezeLocked(true), true
}

// BuildSubmission freezes the attempt and moves it to Submitted. It can be called once.
func (a *Attempt) BuildSubmission() (domain.Submission, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != AttemptInProgress {
		return domain.Submission{}, domain.ErrInvalidState
	}
	return a.freezeLocked(false), nil
}

func (a *Attempt) freezeLocked(auto bool) domain.Submission {
	entries := make([]domain.AnswerEntry, 0, len(a.questions))
	for _, q := range a.questions {
		entry := domain.AnswerEntry{
			QuestionNumber:   q.Number,
			TimeSpentSeconds: a.timeSpent[q.Number],
		}
		if opt, ok := a.answers[q.Number]; ok {
			selected := opt
			entry.SelectedOption = &selected
		}
		_, entry.IsMarked = a.marked[q.Number]
		entries = append(entries, entry)
	}

	a.state = AttemptSubmitted
	a.broadcastLocked()

	return domain.Submission{
		QuizID:         a.quizID,
		Entries:        entries,
		ElapsedSeconds: a.timeLimit - a.remaining,
		AutoSubmitted:  auto,
		SubmittedAt:    a.now(),
	}
}

// Snapshot returns the current view.
func (a *Attempt) Snapshot() AttemptView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Attempt) snapshotLocked() AttemptView {
	view := AttemptView{
		AttemptID:        a.id,
		QuizID:           a.quizID,
		LinkID:           a.owner.LinkID,
		Student:          a.owner.Student,
		State:            a.state,
		CurrentIndex:     a.current,
		TotalQuestions:   len(a.questions),
		RemainingSeconds: a.remaining,
		ElapsedSeconds:   a.timeLimit - a.remaining,
		Answers:          make(map[int]int, len(a.answers)),
		Marked:           make([]int, 0, len(a.marked)),
		FirstAnsweredAt:  make(map[int]int, len(a.firstAnswered)),
		Palette:          make([]PaletteEntry, 0, len(a.questions)),
	}
	if len(a.questions) == 0 {
		return view
	}

	q := a.questions[a.current]
	view.CurrentQuestion = &q
	for k, v := range a.answers {
		view.Answers[k] = v
	}
	for k := range a.marked {
		view.Marked = append(view.Marked, k)
	}
	sort.Ints(view.Marked)
	for k, v := range a.firstAnswered {
		view.FirstAnsweredAt[k] = v
	}

	for i, question := range a.questions {
		_, answered := a.answers[question.Number]
		_, marked := a.marked[question.Number]
		status := PaletteNotAnswered
		switch {
		case i == a.current:
			status = PaletteCurrent
		case answered && marked:
			status = PaletteAnsweredMarked
		case answered:
			status = PaletteAnswered
		case marked:
			status = PaletteMarked
		}
		view.Palette = append(view.Palette, PaletteEntry{QuestionNumber: question.Number, Status: status})
	}

	total := len(a.questions)
	view.Progress = Progress{
		Answered:        len(a.answers),
		Marked:          len(a.marked),
		Remaining:       total - len(a.answers),
		PercentComplete: roundHalfUp(len(a.answers)*100, total),
	}
	return view
}

func (a *Attempt) subscribe() (<-chan AttemptUpdate, func()) {
	ch := make(chan AttemptUpdate, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	initial := AttemptUpdate{View: a.snapshotLocked()}
	a.mu.Unlock()

	ch <- initial

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

// finish delivers the terminal update and closes every subscription.
func (a *Attempt) finish(score *domain.ScoreSummary, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sendLocked(AttemptUpdate{View: a.snapshotLocked(), Score: score, Err: err})
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
}

func (a *Attempt) broadcastLocked() {
	if len(a.subscribers) == 0 {
		return
	}
	a.sendLocked(AttemptUpdate{View: a.snapshotLocked()})
}

func (a *Attempt) sendLocked(update AttemptUpdate) {
	for ch := range a.subscribers {
		select {
		case ch <- update:
		default:
			// Latest state wins for slow readers.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
