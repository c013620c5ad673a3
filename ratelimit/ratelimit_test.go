// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/suite"
)

const KEY = "203.0.113.7"

type RedisLimiterTestSuite struct {
	suite.Suite

	db      *miniredis.Miniredis
	limiter *RedisLimiter
	clock   time.Time
}

func TestRedisLimiterTestSuite(t *testing.T) {
	suite.Run(t, new(RedisLimiterTestSuite))
}

func (s *RedisLimiterTestSuite) SetupTest() {
	db, err := miniredis.Run()
	s.Require().Nil(err)
	s.db = db

	client := redis.NewClient(&redis.Options{Addr: db.Addr()})
	s.limiter = NewRedisLimiter(client, 5, time.Minute)
	s.clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.limiter.now = func() time.Time { return s.clock }
}

func (s *RedisLimiterTestSuite) TearDownTest() {
	s.limiter.Close()
	s.db.Close()
}

func (s *RedisLimiterTestSuite) allow(key string) Result {
	res, err := s.limiter.Allow(context.Background(), key)
	s.Require().Nil(err)
	return res
}

func (s *RedisLimiterTestSuite) TestAllowShouldPermitRequestsUpToLimit() {
	for i := 1; i <= 5; i++ {
		res := s.allow(KEY)
		s.True(res.Allowed, "request %d", i)
		s.Equal(5, res.Limit)
		s.Equal(5-i, res.Remaining)
		s.clock = s.clock.Add(time.Second)
	}
}

func (s *RedisLimiterTestSuite) TestAllowShouldRejectRequestOverLimit() {
	for i := 0; i < 5; i++ {
		s.allow(KEY)
	}

	res := s.allow(KEY)
	s.False(res.Allowed)
	s.Equal(0, res.Remaining)
	s.WithinDuration(s.clock.Add(time.Minute), res.Reset, 0)
}

func (s *RedisLimiterTestSuite) TestRejectedRequestsShouldNotOccupyTheWindow() {
	for i := 0; i < 5; i++ {
		s.allow(KEY)
	}
	for i := 0; i < 3; i++ {
		s.False(s.allow(KEY).Allowed)
	}

	members, err := s.db.ZMembers("ratelimit:" + KEY)
	s.Nil(err)
	s.Len(members, 5)
}

func (s *RedisLimiterTestSuite) TestWindowShouldSlide() {
	start := s.clock
	for i := 0; i < 5; i++ {
		s.allow(KEY)
		s.clock = s.clock.Add(10 * time.Second)
	}
	s.False(s.allow(KEY).Allowed)

	// First request leaves the window one minute after it was made
	s.clock = start.Add(time.Minute + time.Millisecond)
	res := s.allow(KEY)
	s.True(res.Allowed)
	s.Equal(0, res.Remaining)
	s.WithinDuration(start.Add(10*time.Second).Add(time.Minute), res.Reset, 0)
}

func (s *RedisLimiterTestSuite) TestKeysShouldBeIndependent() {
	for i := 0; i < 5; i++ {
		s.allow(KEY)
	}
	s.False(s.allow(KEY).Allowed)
	s.True(s.allow("198.51.100.1").Allowed)
}

func (s *RedisLimiterTestSuite) TestAllowShouldSetExpiryOnKey() {
	s.allow(KEY)
	s.Equal(time.Minute, s.db.TTL("ratelimit:"+KEY))
}

func (s *RedisLimiterTestSuite) TestAllowOnClosedLimiterShouldReturnErrClosed() {
	s.Nil(s.limiter.Close())
	_, err := s.limiter.Allow(context.Background(), KEY)
	s.Equal(ErrClosed, err)
}

func (s *RedisLimiterTestSuite) TestCloseDuringAllowShouldNotRace() {
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.limiter.Allow(context.Background(), KEY)
			errs <- err
		}()
	}
	s.Nil(s.limiter.Close())
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			s.Equal(ErrClosed, err)
		}
	}
	_, err := s.limiter.Allow(context.Background(), KEY)
	s.Equal(ErrClosed, err)
}

func (s *RedisLimiterTestSuite) TestAllowShouldFailWhenRedisIsDown() {
	s.db.Close()
	_, err := s.limiter.Allow(context.Background(), KEY)
	s.NotNil(err)
}

func (s *RedisLimiterTestSuite) TestNewFromURLShouldConnect() {
	limiter, err := NewFromURL("redis://"+s.db.Addr()+"/0", 3, time.Second)
	s.Require().Nil(err)
	defer limiter.Close()
	s.True(s.allowWith(limiter).Allowed)
}

func (s *RedisLimiterTestSuite) TestNewFromURLShouldRejectBadURL() {
	_, err := NewFromURL("http://not-redis", 3, time.Second)
	s.NotNil(err)
}

func (s *RedisLimiterTestSuite) allowWith(l Limiter) Result {
	res, err := l.Allow(context.Background(), KEY)
	s.Require().Nil(err)
	return res
}

func TestNopAllowsEverything(t *testing.T) {
	var l Limiter = Nop{}
	for i := 0; i < 100; i++ {
		res, err := l.Allow(context.Background(), KEY)
		if err != nil || !res.Allowed {
			t.Fatalf("Nop.Allow() = %+v, %v", res, err)
		}
	}
}
