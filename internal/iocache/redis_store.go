package iocache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/schema"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisAddr is used when no connection string is configured.
const DefaultRedisAddr = "localhost:6379"

// redisEntryTTL bounds how long Redis keeps an entry. Staleness is still
// decided by the caller from the stored timestamp.
const redisEntryTTL = 30 * 24 * time.Hour

// redisOpTimeout bounds each Redis round trip.
const redisOpTimeout = 5 * time.Second

// Hash fields of one cache entry.
const (
	redisValueField     = "value"
	redisVersionField   = "version"
	redisTimestampField = "timestamp"
)

// RedisStore is a CacheStore backed by Redis hashes, one per cache key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ contract.CacheStore = &RedisStore{} // Compile-time check

// NewRedisStore connects to Redis. connStr is either host:port or a
// redis:// URL; empty means DefaultRedisAddr. Keys live under "riskmap:<namespace>:".
func NewRedisStore(namespace, connStr string) (*RedisStore, error) {
	if err := validateTableName(namespace); err != nil {
		return nil, err
	}
	opts, err := redisOptions(connStr)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s. Check that the server is running: %w", opts.Addr, err)
	}

	return &RedisStore{client: client, prefix: "riskmap:" + namespace + ":"}, nil
}

func redisOptions(connStr string) (*redis.Options, error) {
	switch {
	case connStr == "":
		return &redis.Options{Addr: DefaultRedisAddr}, nil
	case strings.Contains(connStr, "://"):
		opts, err := redis.ParseURL(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		return opts, nil
	default:
		return &redis.Options{Addr: connStr}, nil
	}
}

// Get retrieves a value by key from the store. A missing key returns redis.Nil.
func (rs *RedisStore) Get(key string) ([]byte, int, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	fields, err := rs.client.HGetAll(ctx, rs.prefix+key).Result()
	if err != nil {
		return nil, 0, 0, err
	}
	if len(fields) == 0 {
		return nil, 0, 0, redis.Nil
	}

	var version int
	var ts int64
	if _, err := fmt.Sscan(fields[redisVersionField], &version); err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt version for %s: %w", key, err)
	}
	if _, err := fmt.Sscan(fields[redisTimestampField], &ts); err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt timestamp for %s: %w", key, err)
	}
	return []byte(fields[redisValueField]), version, ts, nil
}

// Set stores value with its version and timestamp and refreshes the key's TTL.
func (rs *RedisStore) Set(key string, value []byte, version int, timestamp int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	full := rs.prefix + key
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, full,
			redisValueField, value,
			redisVersionField, version,
			redisTimestampField, timestamp,
		)
		pipe.Expire(ctx, full, redisEntryTTL)
		return nil
	})
	return err
}

// GetStatus scans the namespace and reports entry count, age range and memory use.
func (rs *RedisStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(schema.RedisBackend), Connected: true}

	ctx, cancel := context.WithTimeout(context.Background(), 4*redisOpTimeout)
	defer cancel()

	var lastTs, oldestTs int64
	iter := rs.client.Scan(ctx, 0, rs.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		status.TotalEntries++

		ts, err := rs.client.HGet(ctx, key, redisTimestampField).Int64()
		if err == nil {
			if lastTs == 0 || ts > lastTs {
				lastTs = ts
			}
			if oldestTs == 0 || ts < oldestTs {
				oldestTs = ts
			}
		}
		if size, err := rs.client.MemoryUsage(ctx, key).Result(); err == nil {
			status.TableSizeBytes += size
		}
	}
	if err := iter.Err(); err != nil {
		return status, fmt.Errorf("failed to scan redis keys: %w", err)
	}

	if status.TotalEntries > 0 {
		status.LastEntryTime = time.Unix(lastTs, 0)
		status.OldestEntryTime = time.Unix(oldestTs, 0)
	}
	return status, nil
}

// Clear deletes every key of the namespace and returns how many were removed.
func (rs *RedisStore) Clear() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*redisOpTimeout)
	defer cancel()

	var removed int
	iter := rs.client.Scan(ctx, 0, rs.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := rs.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, iter.Err()
}

// Close closes the Redis client.
func (rs *RedisStore) Close() error {
	if rs.client == nil {
		return nil
	}
	err := rs.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
