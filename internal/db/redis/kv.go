package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/hopdex/internal/db"
)

// Key-value commands backing the embedding cache (Get/Set*) and the budget
// counters (IncrBy/Expire).

// Get fetches a raw value. Missing keys surface as db.ErrKeyNotFound so the
// cache layer can treat them as misses without inspecting Redis errors.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	if err == nil {
		return data, nil
	}
	if rueidis.IsRedisNil(err) {
		return nil, db.ErrKeyNotFound
	}
	return nil, &db.Error{Op: db.OpGet, Err: err}
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.exec(ctx, db.OpSet, s.b().Set().Key(key).Value(string(value)).Build())
}

// SetWithTTL stores a value that expires after ttl.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.exec(ctx, db.OpSet, s.b().Set().Key(key).Value(string(value)).Ex(ttl).Build())
}

// IncrBy atomically adds val to the counter at key, creating it at zero.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	return s.exec(ctx, db.OpIncrBy, s.b().Incrby().Key(key).Increment(val).Build())
}

// Expire sets a TTL on key. With nx the TTL is only set when the key has
// none yet, which keeps repeated counter writes from pushing expiry out.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	seconds := int64(ttl.Seconds())
	if nx {
		return s.exec(ctx, db.OpExpire, s.b().Expire().Key(key).Seconds(seconds).Nx().Build())
	}
	return s.exec(ctx, db.OpExpire, s.b().Expire().Key(key).Seconds(seconds).Build())
}

// exec runs a command that carries no reply payload, wrapping failures with
// the command name.
func (s *Store) exec(ctx context.Context, op string, cmd rueidis.Completed) error {
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	return nil
}
