// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Ranked Eats API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - PollHandler: Poll lifecycle (create, inspect, close)
  - RestaurantHandler: The restaurant pool polls are built from
  - VotingHandler: Ranked ballot submission
  - ResultsHandler: Poll info and Borda standings

Handlers are created via constructor functions that accept *sql.DB and Config:

	pollHandler := handlers.NewPollHandler(db, cfg)

# Poll Lifecycle

Polls are created open and stay open until an admin closes them:

	POST /polls              → CreatePoll (returns admin_key)
	GET  /polls/{id}/admin   → GetPollAdmin
	POST /polls/{id}/close   → ClosePoll

A poll's restaurants are either chosen by ID or sampled at random from the
pool. Their order is stored and decides ties in the results. Admin operations
require the X-Admin-Key header.

# Voting Flow

Voters are anonymous. Each submission ranks every restaurant in the poll
exactly once with ranks 1..N:

	POST /polls/{id}/votes → SubmitVote

A submission is rejected with 409 once the poll is closed or has reached
max_voters. The cap is enforced by a conditional update so concurrent
submissions cannot overshoot it.

# Results

	GET /polls/{id}/results → GetResults

ComputePollResults reads restaurants and ballots in one transaction and
hands them to the tally package. Results are visible while the poll is open.
*/
package handlers
