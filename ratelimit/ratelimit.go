// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
)

var ErrClosed = errors.New("rate limiter closed")

// Result describes the state of a key's window after a request
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time // when the oldest request in the window expires
}

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Nop allows everything. Used when no Redis is configured.
type Nop struct{}

func (Nop) Allow(ctx context.Context, key string) (Result, error) {
	return Result{Allowed: true}, nil
}

// RedisLimiter is a sliding-window log limiter backed by a Redis sorted set per key.
// Scores are request times in milliseconds.
type RedisLimiter struct {
	// mu guards client; Allow holds the read lock so Close waits for in-flight checks
	mu     sync.RWMutex
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

// NewFromURL connects to Redis (redis://[:password@]host:port/db) and verifies the connection
func NewFromURL(url string, limit int, window time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisLimiter(client, limit, window), nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.client == nil {
		return Result{}, ErrClosed
	}

	client := l.client.WithContext(ctx)
	now := l.now()
	nowMs := now.UnixMilli()
	windowStart := now.Add(-l.window).UnixMilli()
	redisKey := l.prefix + key
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	var count *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := client.TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(redisKey, "-inf", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(redisKey, redis.Z{Score: float64(nowMs), Member: member})
		count = pipe.ZCard(redisKey)
		oldest = pipe.ZRangeWithScores(redisKey, 0, 0)
		pipe.Expire(redisKey, l.window)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit pipeline failed: %w", err)
	}

	reset := now.Add(l.window)
	if first := oldest.Val(); len(first) > 0 {
		reset = time.UnixMilli(int64(first[0].Score)).Add(l.window)
	}

	used := int(count.Val())
	if used > l.limit {
		// Rejected requests must not hold a slot in the window
		if err := client.ZRem(redisKey, member).Err(); err != nil {
			return Result{}, fmt.Errorf("failed to drop rejected request: %w", err)
		}
		return Result{Allowed: false, Limit: l.limit, Remaining: 0, Reset: reset}, nil
	}

	return Result{Allowed: true, Limit: l.limit, Remaining: l.limit - used, Reset: reset}, nil
}

func (l *RedisLimiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		err := l.client.Close()
		l.client = nil

		return err
	}

	return nil
}
