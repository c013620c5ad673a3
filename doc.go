// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Ranked Eats API server.

Ranked Eats lets a group pick a restaurant. Someone creates a poll from the
restaurant pool, friends rank every option, and restaurants are ordered by
Borda count: with N restaurants a first place is worth N points and a last
place 1.

# Starting the Server

The server reads environment variables, a .env file, or CLI flags:

	DATABASE_URL=ranked-eats.db ADMIN_KEY_SALT=dev go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -redis redis://localhost:6379/0

Fill the restaurant pool first:

	go run ./cmd/populate -location "San Francisco, CA" -location "Oakland, CA" -limit 30

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file or PostgreSQL connection string
  - ADMIN_KEY_SALT (-admin-salt): Secret for admin key HMAC and IP hashing

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - REDIS_URL (-redis): Enables vote rate limiting
  - RATE_LIMIT, RATE_WINDOW: Votes per client per window (default: 5 per 1m)
  - CORS_ORIGINS: Comma separated allowed origins (default: *)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - tally: Borda count over ranked ballots
  - handlers: HTTP request handlers (polls, restaurants, voting, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, rate limiting, JSON helpers
  - ratelimit: Redis sliding window limiter
  - places: Google Places restaurant search
  - models: Request/response types
  - auth: ID generation, admin keys and IP hashing
  - db: Connections and embedded migrations
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
