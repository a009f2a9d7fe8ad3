package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizlink-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (files, Postgres, ...).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quizzes in Redis and falls back to a loader on cache miss.
// The student-facing content and the answer key live under separate keys:
//
//	SET  quiz:{quizID}:content {public quiz JSON}
//	HSET quiz:{quizID}:answers {questionNumber} {optionIndex}
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fromCache(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.fromCache(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := quiz.Validate(); err != nil {
			return domain.Quiz{}, err
		}
		r.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes a quiz from the cache.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.contentKey(quizID), r.answersKey(quizID)).Err()
}

func (r *QuizRepository) fromCache(ctx context.Context, quizID string) (domain.Quiz, bool) {
	pipe := r.client.Pipeline()
	contentCmd := pipe.Get(ctx, r.contentKey(quizID))
	answersCmd := pipe.HGetAll(ctx, r.answersKey(quizID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.Quiz{}, false
	}

	raw, err := contentCmd.Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	answers, err := answersCmd.Result()
	if err != nil || len(answers) == 0 {
		return domain.Quiz{}, false
	}

	var public domain.PublicQuiz
	if err := json.Unmarshal(raw, &public); err != nil {
		return domain.Quiz{}, false
	}
	key, ok := parseAnswerKey(answers)
	if !ok {
		return domain.Quiz{}, false
	}
	return domain.Quiz{
		ID:               public.ID,
		Title:            public.Title,
		TimeLimitSeconds: public.TimeLimitSeconds,
		Questions:        public.Questions,
		AnswerKey:        key,
	}, true
}

// store is best effort; a failed write only costs a later reload.
func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz) {
	raw, err := json.Marshal(quiz.Public())
	if err != nil {
		return
	}
	contentKey, answersKey := r.contentKey(quiz.ID), r.answersKey(quiz.ID)
	ttl := r.ttlWithJitter()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, answersKey)
	pipe.Set(ctx, contentKey, raw, ttl)
	for number, option := range quiz.AnswerKey {
		pipe.HSet(ctx, answersKey, strconv.Itoa(number), option)
	}
	if ttl > 0 {
		pipe.Expire(ctx, answersKey, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func parseAnswerKey(raw map[string]string) (domain.AnswerKey, bool) {
	key := make(domain.AnswerKey, len(raw))
	for k, v := range raw {
		number, err := strconv.Atoi(k)
		if err != nil {
			return nil, false
		}
		option, err := strconv.Atoi(v)
		if err != nil {
			return nil, false
		}
		key[number] = option
	}
	return key, true
}

func (r *QuizRepository) contentKey(quizID string) string {
	return "quiz:" + quizID + ":content"
}

func (r *QuizRepository) answersKey(quizID string) string {
	return "quiz:" + quizID + ":answers"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
