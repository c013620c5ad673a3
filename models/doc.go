// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreatePollRequest: title, description, max_rankings, max_voters,
    restaurant_ids or restaurant_count
  - SubmitVoteRequest: rankings ([]Ranking of restaurant_id, rank)

# Response Types

  - CreatePollResponse: poll, admin_key, message
  - SubmitVoteResponse: voter_id, votes_submitted, message
  - ClosePollResponse: poll_id, closed_at
  - PollSummary: public poll view with voter counts
  - ResultsResponse: tallied results, total_voters, max_voters, poll_title
  - ErrorResponse: error, message, retry_after

# Domain Types

  - Restaurant: a candidate from the ingested restaurant pool
  - Poll: poll metadata and voting limits
  - RestaurantResult: a tally.Result with the restaurant's place ID

# Limits

	MinRestaurants     = 3
	MaxRestaurants     = 10
	DefaultMaxRankings = 4
	DefaultMaxVoters   = 10
*/
package models
