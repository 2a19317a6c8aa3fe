package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yadbot/yadbot/types"
)

const statePrefix = "yadbot:dialogue"

// RedisStateStore checkpoints one DialogueState per user as a JSON blob with
// a TTL. Expiry is the abandonment mechanism: a stale sub-flow simply
// vanishes and the next message starts from idle.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStateStore{client: client, ttl: ttl}
}

func (s *RedisStateStore) key(userID int64) string {
	return redisKey(statePrefix, strconv.FormatInt(userID, 10))
}

// GetState returns nil with no error when no checkpoint exists.
func (s *RedisStateStore) GetState(ctx context.Context, userID int64) (*types.DialogueState, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dialogue state: %w", err)
	}

	var st types.DialogueState
	if err := json.Unmarshal(data, &st); err != nil {
		// A corrupt checkpoint must not wedge the user; drop it.
		_ = s.client.Del(ctx, s.key(userID)).Err()
		return nil, nil
	}
	return &st, nil
}

func (s *RedisStateStore) SaveState(ctx context.Context, st *types.DialogueState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal dialogue state: %w", err)
	}
	return s.client.Set(ctx, s.key(st.UserID), data, s.ttl).Err()
}

func (s *RedisStateStore) DeleteState(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}
