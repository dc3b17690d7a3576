package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tiercache/tiercache/types"
)

// tagKeyPrefix namespaces the Redis sets that index tagged keys, keeping
// them out of the value keyspace.
const tagKeyPrefix = "cachetag:"

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is the shared cache tier, backed by Redis. Redis enforces
// absolute deadlines via EXPIRE; sliding entries are renewed with a fresh
// EXPIRE on every hit. Tags are kept as Redis sets so RemoveByTag can delete
// all members in one round trip.
type RedisStore struct {
	client     *redis.Client
	serializer Serializer
}

// NewRedisStore creates a new Redis-backed shared tier and verifies the
// connection.
func NewRedisStore(cfg RedisConfig, serializer Serializer) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, serializer: serializer}, nil
}

// Get retrieves a value. A hit on a sliding entry pushes its deadline
// forward; the renewal is best effort and a failure does not fail the read.
func (rs *RedisStore) Get(ctx context.Context, key string) (any, bool, error) {
	value, _, found, err := rs.GetWithTags(ctx, key)
	return value, found, err
}

// GetWithTags retrieves a value along with the tags it was written with, so
// a caller copying the entry into another tier can register them there.
func (rs *RedisStore) GetWithTags(ctx context.Context, key string) (any, []string, bool, error) {
	data, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}

	raw, spec, tags, negative, err := decodeEnvelope(data)
	if err != nil {
		return nil, nil, false, err
	}
	if negative {
		return types.NegativeEntry{}, tags, true, nil
	}

	var value any
	if err := rs.serializer.Unmarshal(raw, &value); err != nil {
		return nil, nil, false, err
	}

	if spec.Kind == types.Sliding {
		rs.client.Expire(ctx, key, spec.Duration)
	}
	return value, tags, true, nil
}

// Set stores a value under key. Tagged writes add the key to each tag's
// index set in the same pipeline as the value write. A re-tagging write
// removes the key from tag sets it no longer belongs to, so the index sets
// stay bounded by the live tag assignments.
func (rs *RedisStore) Set(ctx context.Context, key string, value any, spec types.ExpirationSpec, tags ...string) error {
	var (
		raw      []byte
		negative bool
		err      error
	)
	if _, negative = value.(types.NegativeEntry); !negative {
		raw, err = rs.serializer.Marshal(value)
		if err != nil {
			return err
		}
	}

	data, err := encodeEnvelope(raw, spec, tags, negative)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if spec.Expires() {
		ttl = spec.Duration
	}

	stale := staleTags(rs.entryTags(ctx, key), tags)

	_, err = rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, ttl)
		for _, tag := range stale {
			pipe.SRem(ctx, tagKeyPrefix+tag, key)
		}
		for _, tag := range tags {
			pipe.SAdd(ctx, tagKeyPrefix+tag, key)
		}
		return nil
	})
	return err
}

// entryTags reads the tags recorded in the key's current envelope. Best
// effort: a missing or undecodable entry yields nil.
func (rs *RedisStore) entryTags(ctx context.Context, key string) []string {
	data, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	_, _, tags, _, err := decodeEnvelope(data)
	if err != nil {
		return nil
	}
	return tags
}

// staleTags returns the tags in prev that are absent from next.
func staleTags(prev, next []string) []string {
	if len(prev) == 0 {
		return nil
	}
	keep := make(map[string]struct{}, len(next))
	for _, tag := range next {
		keep[tag] = struct{}{}
	}
	var stale []string
	for _, tag := range prev {
		if _, ok := keep[tag]; !ok {
			stale = append(stale, tag)
		}
	}
	return stale
}

// Remove deletes a single key. The key stays in any tag index it belonged
// to; RemoveByTag tolerates deleting absent members.
func (rs *RedisStore) Remove(ctx context.Context, key string) error {
	return rs.client.Del(ctx, key).Err()
}

// RemoveByTag deletes every key in the tag's index set, then the set itself.
func (rs *RedisStore) RemoveByTag(ctx context.Context, tag string) error {
	tagKey := tagKeyPrefix + tag

	keys, err := rs.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		return err
	}

	_, err = rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, tagKey)
		return nil
	})
	return err
}

// Clear removes all values from the database.
func (rs *RedisStore) Clear(ctx context.Context) error {
	return rs.client.FlushDB(ctx).Err()
}

// Close closes the Redis connection.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// Client returns the underlying Redis client, used by the pub/sub
// synchronizer to share the connection pool.
func (rs *RedisStore) Client() *redis.Client {
	return rs.client
}
