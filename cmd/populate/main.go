// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command populate fills the restaurant pool from Google Places.
//
//	GOOGLE_PLACES_API_KEY=... go run ./cmd/populate -location "San Francisco, CA" -limit 30
//	go run ./cmd/populate -location "New York, NY" -location "Chicago, IL"
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielhkuo/ranked-eats/auth"
	"github.com/danielhkuo/ranked-eats/cliparse"
	"github.com/danielhkuo/ranked-eats/db"
	"github.com/danielhkuo/ranked-eats/models"
	"github.com/danielhkuo/ranked-eats/places"
)

func main() {
	cfg, err := cliparse.ParsePopulateFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("populate failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliparse.PopulateConfig) error {
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := db.Migrate(dbConn, cfg.DatabaseType, cfg.DatabaseURL); err != nil {
		return err
	}

	client, err := places.NewGoogleClient(cfg.PlacesAPIKey)
	if err != nil {
		return err
	}
	client.Radius = uint(cfg.Radius)

	return populate(ctx, dbConn, client, cfg)
}

// populate imports each location in turn, pausing between them to stay
// under the Places quota. A failed location is logged and skipped; the run
// only fails if no location could be searched.
func populate(ctx context.Context, conn *sql.DB, searcher places.Searcher, cfg cliparse.PopulateConfig) error {
	var failed []error
	for i, location := range cfg.Locations {
		if i > 0 && cfg.LocationDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.LocationDelay):
			}
		}

		slog.Info("searching restaurants", "location", location, "limit", cfg.Limit, "radius_m", cfg.Radius)

		restaurants, err := searcher.SearchRestaurants(ctx, location, cfg.Limit)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			slog.Error("location search failed", "location", location, "error", err)
			failed = append(failed, err)
			continue
		}

		added, err := insertRestaurants(ctx, conn, restaurants)
		if err != nil {
			return err
		}

		slog.Info("restaurants imported", "location", location,
			"found", len(restaurants), "added", added, "skipped", len(restaurants)-added)
	}

	if len(failed) > 0 && len(failed) == len(cfg.Locations) {
		return fmt.Errorf("no location could be searched: %w", errors.Join(failed...))
	}
	return nil
}

// insertRestaurants stores restaurants not already known by place ID
// and returns how many were new.
func insertRestaurants(ctx context.Context, conn *sql.DB, restaurants []models.Restaurant) (int, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, rest := range restaurants {
		id, err := auth.GenerateID(12)
		if err != nil {
			return 0, err
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO restaurant (id, name, location, place_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (place_id) DO NOTHING
		`, id, rest.Name, rest.Location, rest.PlaceID, time.Now().UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to insert %q: %w", rest.Name, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			slog.Debug("restaurant already exists", "place_id", rest.PlaceID, "name", rest.Name)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return added, nil
}
