package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockValue    = "LOCK"
	resultPrefix = "RES:"
)

// StoredResponse is the response replayed for a repeated transaction.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyStore remembers the outcome of each transaction envelope by
// its digest. A key holds either LOCK while the first attempt runs, or the
// saved response once it finished.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, digest string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, KeyIdempotency(digest), lockValue, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, digest string, res StoredResponse) error {
	const op = "redisrepo.IdempotencyStore.SaveResult"

	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.rdb.Set(ctx, KeyIdempotency(digest), resultPrefix+string(b), s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *IdempotencyStore) GetResult(ctx context.Context, digest string) (StoredResponse, bool, error) {
	const op = "redisrepo.IdempotencyStore.GetResult"

	v, err := s.rdb.Get(ctx, KeyIdempotency(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, fmt.Errorf("%s:%w", op, err)
	}

	payload, ok := strings.CutPrefix(v, resultPrefix)
	if !ok {
		return StoredResponse{}, false, nil
	}

	var res StoredResponse
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return StoredResponse{}, false, fmt.Errorf("%s:%w", op, err)
	}

	return res, true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, digest string) error {
	return s.rdb.Del(ctx, KeyIdempotency(digest)).Err()
}
