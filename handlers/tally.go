// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/ranked-eats/models"
	"github.com/danielhkuo/ranked-eats/tally"
)

// PollTally is everything needed to report a poll's standings
type PollTally struct {
	Poll        models.Poll
	Restaurants []models.Restaurant
	Results     []models.RestaurantResult
	Voters      int
}

// ComputePollResults loads a poll's restaurants and ballots from one
// transaction and ranks the restaurants by Borda points.
// Returns sql.ErrNoRows if the poll does not exist.
func ComputePollResults(ctx context.Context, db *sql.DB, pollID string, opts *sql.TxOptions) (PollTally, error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return PollTally{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	poll, err := getPoll(tx, pollID)
	if err != nil {
		return PollTally{}, err
	}

	restaurants, err := pollRestaurants(tx, pollID)
	if err != nil {
		return PollTally{}, err
	}

	ballots, err := getBallots(tx, pollID)
	if err != nil {
		return PollTally{}, fmt.Errorf("failed to get ballots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return PollTally{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	placeIDs := make(map[string]string, len(restaurants))
	for _, rest := range restaurants {
		placeIDs[rest.ID] = rest.PlaceID
	}

	// Candidate order is poll position, which decides ties
	ranked := tally.Compute(candidatesOf(restaurants), ballots)
	results := make([]models.RestaurantResult, len(ranked))
	for i, res := range ranked {
		results[i] = models.RestaurantResult{
			Result:  res,
			PlaceID: placeIDs[res.CandidateID],
		}
	}

	return PollTally{
		Poll:        poll,
		Restaurants: restaurants,
		Results:     results,
		Voters:      len(ballots),
	}, nil
}

// getBallots groups a poll's votes into one ballot per voter, oldest voter first
func getBallots(q queryer, pollID string) ([]tally.Ballot, error) {
	rows, err := q.Query(`
		SELECT v.voter_id, v.restaurant_id, v.rank
		FROM vote v
		JOIN voter vt ON vt.id = v.voter_id
		WHERE v.poll_id = $1
		ORDER BY vt.created_at, vt.id
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ballots := []tally.Ballot{}
	for rows.Next() {
		var voterID, restaurantID string
		var rank int
		if err := rows.Scan(&voterID, &restaurantID, &rank); err != nil {
			return nil, err
		}

		if len(ballots) == 0 || ballots[len(ballots)-1].ID != voterID {
			ballots = append(ballots, tally.Ballot{ID: voterID, Ranks: map[string]int{}})
		}
		ballots[len(ballots)-1].Ranks[restaurantID] = rank
	}

	return ballots, rows.Err()
}
