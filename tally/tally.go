// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"fmt"
	"sort"
)

// Candidate is a restaurant option in a poll
type Candidate struct {
	ID   string
	Name string
}

// Ballot is one voter's ranking: candidate ID -> rank (1 = most preferred)
type Ballot struct {
	ID    string
	Ranks map[string]int
}

// Result is the tally for a single candidate
type Result struct {
	CandidateID string  `json:"id"`
	Name        string  `json:"name"`
	TotalPoints int     `json:"total_points"`
	VoteCount   int     `json:"vote_count"`
	RankCounts  []int   `json:"rank_counts"` // RankCounts[i] = ballots ranking the candidate at i+1
	AverageRank float64 `json:"average_rank"`
}

// InvalidBallotError reports a ballot that is not a permutation of 1..N over the
// poll's candidates
type InvalidBallotError struct {
	BallotID    string
	CandidateID string
	Reason      string
}

func (e *InvalidBallotError) Error() string {
	if e.CandidateID == "" {
		return fmt.Sprintf("invalid ballot %q: %s", e.BallotID, e.Reason)
	}
	return fmt.Sprintf("invalid ballot %q: candidate %q: %s", e.BallotID, e.CandidateID, e.Reason)
}

// Compute scores every candidate Borda-style: a rank r out of N candidates is
// worth N-r+1 points. Results are ordered by total points, highest first; equal
// totals keep the order candidates were passed in.
//
// Ballots are expected to have passed Validate. Ranks for unknown candidates are
// ignored and out-of-range ranks are left out of RankCounts.
func Compute(candidates []Candidate, ballots []Ballot) []Result {
	n := len(candidates)
	results := make([]Result, n)
	rankSums := make([]int, n)

	for i, c := range candidates {
		results[i] = Result{
			CandidateID: c.ID,
			Name:        c.Name,
			RankCounts:  make([]int, n),
		}
	}

	for _, b := range ballots {
		for i, c := range candidates {
			rank, ok := b.Ranks[c.ID]
			if !ok {
				continue
			}
			results[i].TotalPoints += n - rank + 1
			results[i].VoteCount++
			rankSums[i] += rank
			if rank >= 1 && rank <= n {
				results[i].RankCounts[rank-1]++
			}
		}
	}

	for i := range results {
		if results[i].VoteCount > 0 {
			results[i].AverageRank = float64(rankSums[i]) / float64(results[i].VoteCount)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalPoints > results[j].TotalPoints
	})

	return results
}

// Validate checks that a ballot ranks every candidate exactly once with ranks 1..N
func Validate(candidates []Candidate, b Ballot) error {
	n := len(candidates)
	known := make(map[string]bool, n)
	for _, c := range candidates {
		known[c.ID] = true
	}

	for id := range b.Ranks {
		if !known[id] {
			return &InvalidBallotError{BallotID: b.ID, CandidateID: id, Reason: "not a candidate in this poll"}
		}
	}

	taken := make(map[int]string, n)
	for _, c := range candidates {
		rank, ok := b.Ranks[c.ID]
		if !ok {
			return &InvalidBallotError{BallotID: b.ID, CandidateID: c.ID, Reason: "candidate not ranked"}
		}
		if rank < 1 || rank > n {
			return &InvalidBallotError{
				BallotID:    b.ID,
				CandidateID: c.ID,
				Reason:      fmt.Sprintf("rank %d outside 1..%d", rank, n),
			}
		}
		if other, dup := taken[rank]; dup {
			return &InvalidBallotError{
				BallotID:    b.ID,
				CandidateID: c.ID,
				Reason:      fmt.Sprintf("rank %d already given to %q", rank, other),
			}
		}
		taken[rank] = c.ID
	}

	return nil
}
