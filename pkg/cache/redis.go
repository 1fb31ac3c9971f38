package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	backendRedis = "redis"

	// DefaultPrefix namespaces all keys written by RedisStore
	DefaultPrefix = "respcache"
)

// putScript stores an entry and indexes it under its tags. Each tag is a
// sorted set of entry keys scored by expiry in unix milliseconds. Members
// that have expired are pruned and the set lives as long as its longest
// lived member.
//
// KEYS[1]: entry key, KEYS[2..]: tag keys.
// ARGV: JSON entry, TTL in ms (0 for none), score, now in ms.
var putScript = redis.NewScript(`
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
else
	redis.call("SET", KEYS[1], ARGV[1])
end
local now = tonumber(ARGV[4])
for i = 2, #KEYS do
	redis.call("ZADD", KEYS[i], ARGV[3], KEYS[1])
	redis.call("ZREMRANGEBYSCORE", KEYS[i], "-inf", now)
	local last = redis.call("ZRANGE", KEYS[i], -1, -1, "WITHSCORES")
	if last[2] == "inf" then
		redis.call("PERSIST", KEYS[i])
	else
		local remaining = math.floor(tonumber(last[2]) - now)
		if remaining < 1 then
			remaining = 1
		end
		redis.call("PEXPIRE", KEYS[i], remaining)
	end
end
return 1
`)

// invalidateScript removes every entry referenced by the given tag sets and
// the sets themselves. Running as a script makes the removal atomic.
//
// KEYS: tag set keys. Returns the number of entries removed.
var invalidateScript = redis.NewScript(`
local removed = 0
for _, tagKey in ipairs(KEYS) do
	local members = redis.call("ZRANGE", tagKey, 0, -1)
	for _, entryKey in ipairs(members) do
		removed = removed + redis.call("DEL", entryKey)
	end
	redis.call("DEL", tagKey)
end
return removed
`)

// RedisStore is a Store backed by Redis. Entries are stored as JSON with a
// Redis TTL matching their expiry; each tag is a sorted set of entry keys
// that expires with the last entry it references.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key namespace (default DefaultPrefix).
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStore creates a new cache store with Redis backend.
func NewRedisStore(redisClient *redis.Client, opts ...RedisOption) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	s := &RedisStore{
		redis:  redisClient,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) entryKey(key string) string {
	return s.prefix + ":entry:" + key
}

func (s *RedisStore) tagKey(tag string) string {
	return s.prefix + ":tag:" + tag
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, s.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(backendRedis).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(backendRedis, "get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis TTLs have millisecond granularity; never serve past Expires
	if entry.ExpiredAt(s.now()) {
		_ = s.Delete(ctx, key)
		CacheMisses.WithLabelValues(backendRedis).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(backendRedis).Inc()
	return &entry, nil
}

// Put stores an entry with a TTL derived from its Expires field and adds
// the key to each of its tag sets. An already expired entry is not stored
// and removes whatever the key held before.
func (s *RedisStore) Put(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		CacheErrors.WithLabelValues(backendRedis, "put").Inc()
		return fmt.Errorf("%w: entry cannot be nil", ErrInvalidEntry)
	}

	now := s.now()
	var ttl time.Duration
	score := "+inf"
	if entry.HasExpiry() {
		ttl = entry.TTL(now)
		if ttl <= 0 {
			return s.Delete(ctx, key)
		}
		if ttl < time.Millisecond {
			ttl = time.Millisecond
		}
		score = strconv.FormatInt(now.Add(ttl).UnixMilli(), 10)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues(backendRedis, "put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	keys := make([]string, 0, len(entry.Tags)+1)
	keys = append(keys, s.entryKey(key))
	for _, tag := range entry.Tags {
		keys = append(keys, s.tagKey(tag))
	}
	err = putScript.Run(ctx, s.redis, keys, data, ttl.Milliseconds(), score, now.UnixMilli()).Err()
	if err != nil {
		CacheErrors.WithLabelValues(backendRedis, "put").Inc()
		return fmt.Errorf("redis put: %w", err)
	}

	CacheStored.WithLabelValues(backendRedis).Inc()
	return nil
}

// InvalidateTags removes every entry carrying any of the tags.
func (s *RedisStore) InvalidateTags(ctx context.Context, tags []string) error {
	if err := validateTags(tags); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "invalidate").Inc()
		return err
	}
	if len(tags) == 0 {
		return nil
	}

	tagKeys := make([]string, 0, len(tags))
	for _, tag := range tags {
		tagKeys = append(tagKeys, s.tagKey(tag))
	}

	removed, err := invalidateScript.Run(ctx, s.redis, tagKeys).Int64()
	if err != nil {
		CacheErrors.WithLabelValues(backendRedis, "invalidate").Inc()
		return fmt.Errorf("redis invalidate tags: %w", err)
	}

	CacheInvalidated.WithLabelValues(backendRedis).Add(float64(removed))
	return nil
}

// Delete removes a cache entry. Its tag set members are pruned by later
// puts or dropped with the set.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.entryKey(key)).Err(); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

var _ Store = (*RedisStore)(nil)
