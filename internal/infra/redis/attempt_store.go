package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizlink-service/internal/app"
	"quizlink-service/internal/infra/memory"
)

const liveAttemptsKey = "attempts:live"

// AttemptStore is a Redis-aware implementation of app.AttemptRepository.
// Attempts stay in a local map so the in-process countdown and broadcast keep working;
// Redis holds a snapshot of each live attempt, read back by LiveAttempts for the admin
// dashboard of any instance.
// Snapshots expire shortly after the attempt's own countdown would.
type AttemptStore struct {
	*memory.AttemptStore
	client *redis.Client
	grace  time.Duration
}

func NewAttemptStore(client *redis.Client, grace time.Duration) *AttemptStore {
	return &AttemptStore{
		AttemptStore: memory.NewAttemptStore(),
		client:       client,
		grace:        grace,
	}
}

func (s *AttemptStore) GetOrCreate(owner app.AttemptOwner, create func() *app.Attempt) (*app.Attempt, bool) {
	attempt, created := s.AttemptStore.GetOrCreate(owner, create)
	if created {
		s.save(attempt)
	}
	return attempt, created
}

func (s *AttemptStore) Touch(attempt *app.Attempt) {
	s.save(attempt)
}

func (s *AttemptStore) Delete(attemptID string) {
	s.AttemptStore.Delete(attemptID)

	ctx := context.Background()
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(attemptID))
	pipe.SRem(ctx, liveAttemptsKey, attemptID)
	_, _ = pipe.Exec(ctx)
}

// Snapshot reads the last stored view of an attempt.
func (s *AttemptStore) Snapshot(ctx context.Context, attemptID string) (app.AttemptView, error) {
	raw, err := s.client.Get(ctx, s.key(attemptID)).Bytes()
	if err != nil {
		return app.AttemptView{}, err
	}
	var view app.AttemptView
	err = json.Unmarshal(raw, &view)
	return view, err
}

// LiveAttempts reads every snapshot in the live set, including attempts held by other
// instances. Members whose snapshot has expired are dropped from the set.
func (s *AttemptStore) LiveAttempts(ctx context.Context) ([]app.AttemptView, error) {
	ids, err := s.client.SMembers(ctx, liveAttemptsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list live attempts: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	raws, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read live attempts: %w", err)
	}

	views := make([]app.AttemptView, 0, len(raws))
	var expired []any
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var view app.AttemptView
		if err := json.Unmarshal([]byte(str), &view); err != nil {
			return nil, fmt.Errorf("decode attempt %s: %w", ids[i], err)
		}
		views = append(views, view)
	}
	if len(expired) > 0 {
		_ = s.client.SRem(ctx, liveAttemptsKey, expired...).Err()
	}
	return views, nil
}

// best-effort snapshot
func (s *AttemptStore) save(attempt *app.Attempt) {
	view := attempt.Snapshot()
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}

	ctx := context.Background()
	ttl := time.Duration(view.RemainingSeconds)*time.Second + s.grace
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(attempt.ID()), raw, ttl)
	pipe.SAdd(ctx, liveAttemptsKey, attempt.ID())
	_, _ = pipe.Exec(ctx)
}

func (s *AttemptStore) key(attemptID string) string {
	return "attempt:" + attemptID
}
