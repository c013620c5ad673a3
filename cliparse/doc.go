// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns the server Config:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

ParsePopulateFlags returns the PopulateConfig used by cmd/populate.

# Sources

Values are resolved in this order: CLI flag, environment variable, .env file,
default. The .env file (-env-file, default ".env") is loaded with godotenv and
never overrides variables that are already set. A missing file is ignored.

# Server Settings

	-p            PORT            Server port (default 3318)
	-d            DATABASE_URL    Database URL (required)
	-t            DATABASE_TYPE   sqlite or postgres (default sqlite)
	--admin-salt  ADMIN_KEY_SALT  Secret for admin keys and IP hashing (required)
	--redis       REDIS_URL       Redis for vote rate limiting (empty disables)
	--rate-limit  RATE_LIMIT      Votes per client per window (default 5)
	--rate-window RATE_WINDOW     Window length (default 1m)
	--cors-origins CORS_ORIGINS   Comma separated origins (default *)

# Populate Settings

	-d, -t                        As above
	--api-key     GOOGLE_PLACES_API_KEY (required)
	--location                    Area to search (required, repeatable)
	--location-delay              Pause between locations (default 1s)
	--limit                       Max restaurants (default 20)
	--radius                      Search radius in meters (default 5000)
*/
package cliparse
