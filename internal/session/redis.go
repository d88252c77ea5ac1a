package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisStore keeps sessions in Redis so multiple server instances can share
// them. Keys expire after the configured TTL; every Put refreshes it.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) key(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, eris.Wrapf(ErrNotFound, "session %s", id)
		}
		return nil, eris.Wrapf(err, "session: get %s", id)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, eris.Wrapf(err, "session: unmarshal %s", id)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return eris.Wrapf(err, "session: marshal %s", s.ID)
	}
	if err := r.rdb.Set(ctx, r.key(s.ID), b, r.ttl).Err(); err != nil {
		return eris.Wrapf(err, "session: put %s", s.ID)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		return eris.Wrapf(err, "session: delete %s", id)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
