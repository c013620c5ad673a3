// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally computes ranked-choice poll results.

# Scoring

Every ballot ranks all N restaurants of a poll from 1 (favourite) to N.
A rank r is worth N-r+1 points, so each ballot hands out the same total of
N(N+1)/2 points:

	results := tally.Compute(candidates, ballots)

Each Result carries the total points, the number of ballots that ranked the
candidate, a histogram of rank positions and the average rank.

# Ordering

Results are sorted by total points, highest first. Ties keep the order the
candidates were passed in, which for stored polls is the order the restaurants
were attached to the poll.

# Validation

Compute trusts its input. Callers accepting ballots from the outside check them
first:

	if err := tally.Validate(candidates, ballot); err != nil {
		var invalid *tally.InvalidBallotError
		errors.As(err, &invalid)
	}
*/
package tally
