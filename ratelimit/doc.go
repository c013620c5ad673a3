// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ratelimit throttles vote submissions per client.

# Sliding Window

RedisLimiter keeps a sorted set per key holding the timestamps of recent
requests. Each call runs one MULTI/EXEC pipeline that drops entries older than
the window, records the request, counts the set and refreshes its TTL. When
the count exceeds the limit the request is rejected and its entry removed, so
rejected attempts never extend a client's lockout.

	limiter, err := ratelimit.NewFromURL(cfg.RedisURL, 5, time.Minute)
	res, err := limiter.Allow(ctx, key)
	if !res.Allowed {
		// 429, retry after res.Reset
	}

# Disabled Limiting

Nop allows every request. The server uses it when REDIS_URL is not set.
*/
package ratelimit
