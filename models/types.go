package models

import (
	"time"

	"github.com/danielhkuo/ranked-eats/tally"
)

// Poll limits
const (
	MinRestaurants     = 3
	MaxRestaurants     = 10
	DefaultMaxRankings = 4
	MaxMaxRankings     = 10
	DefaultMaxVoters   = 10
	MaxMaxVoters       = 100
)

// Request types

type CreatePollRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	MaxRankings     int      `json:"max_rankings"`
	MaxVoters       int      `json:"max_voters"`
	RestaurantIDs   []string `json:"restaurant_ids"`
	RestaurantCount int      `json:"restaurant_count"`
}

type Ranking struct {
	RestaurantID string `json:"restaurant_id"`
	Rank         int    `json:"rank"`
}

type SubmitVoteRequest struct {
	Rankings []Ranking `json:"rankings"`
}

// Response types

type CreatePollResponse struct {
	Poll     PollWithRestaurants `json:"poll"`
	AdminKey string              `json:"admin_key"`
	Message  string              `json:"message"`
}

type SubmitVoteResponse struct {
	VoterID        string `json:"voter_id"`
	VotesSubmitted int    `json:"votes_submitted"`
	Message        string `json:"message"`
}

type ClosePollResponse struct {
	PollID   string    `json:"poll_id"`
	ClosedAt time.Time `json:"closed_at"`
}

type PollSummary struct {
	ID                  string       `json:"id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	IsActive            bool         `json:"is_active"`
	MaxRankings         int          `json:"max_rankings"`
	MaxVoters           int          `json:"max_voters"`
	CurrentVoters       int          `json:"current_voters"`
	HasReachedMaxVoters bool         `json:"has_reached_max_voters"`
	Restaurants         []Restaurant `json:"restaurants"`
}

type ResultsResponse struct {
	Results     []RestaurantResult `json:"results"`
	TotalVoters int                `json:"total_voters"`
	MaxVoters   int                `json:"max_voters"`
	PollTitle   string             `json:"poll_title"`
}

type RestaurantsResponse struct {
	Restaurants []Restaurant `json:"restaurants"`
}

// Domain types

type Restaurant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	PlaceID  string `json:"place_id,omitempty"`
}

type Poll struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	MaxRankings int        `json:"max_rankings"`
	MaxVoters   int        `json:"max_voters"`
	VoterCount  int        `json:"voter_count"`
	IsActive    bool       `json:"is_active"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type PollWithRestaurants struct {
	Poll        Poll         `json:"poll"`
	Restaurants []Restaurant `json:"restaurants"`
}

// RestaurantResult is a tally row plus the restaurant's place ID
type RestaurantResult struct {
	tally.Result
	PlaceID string `json:"place_id,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	RetryAfter string `json:"retry_after,omitempty"`
}
