// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and manages the schema.

# Drivers

Open picks the driver from the configured type:

  - "postgres": github.com/lib/pq
  - "sqlite": modernc.org/sqlite (pure Go, used by the tests)

SQLite handles are limited to one connection, which serializes writers and
lets ":memory:" databases be shared by every query.

# Migrations

Migrate applies the SQL files embedded from migrations/ with golang-migrate:

	if err := db.Migrate(conn, cfg.DatabaseType, cfg.DatabaseURL); err != nil {
		log.Fatal(err)
	}

Safe to call on every start; an up-to-date schema is not an error.
The SQL is written to run unchanged on both engines.

# Tables

  - restaurant: the candidate pool filled by cmd/populate
  - poll: poll metadata, voter cap and running voter count
  - poll_restaurant: candidates of a poll, position = insertion order
  - voter: one anonymous voter per submitted ballot
  - vote: one row per (voter, restaurant) with its rank

# Relationships

	poll 1──* poll_restaurant *──1 restaurant
	poll 1──* voter 1──* vote
	vote *──1 restaurant

All foreign keys use ON DELETE CASCADE.
*/
package db
