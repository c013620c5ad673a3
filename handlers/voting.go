// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/ranked-eats/auth"
	"github.com/danielhkuo/ranked-eats/cliparse"
	"github.com/danielhkuo/ranked-eats/middleware"
	"github.com/danielhkuo/ranked-eats/models"
	"github.com/danielhkuo/ranked-eats/tally"
)

type VotingHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg}
}

// SubmitVote handles POST /polls/:id/votes
// Each submission is a new anonymous voter ranking every restaurant in the poll.
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	poll, err := getPoll(h.db, pollID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !poll.IsActive {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is no longer active")
		return
	}
	if poll.VoterCount >= poll.MaxVoters {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll has reached maximum number of voters")
		return
	}

	// Parse request
	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Rankings) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "At least one ranking is required")
		return
	}

	restaurants, err := pollRestaurants(h.db, pollID)
	if err != nil {
		slog.Error("failed to query restaurants", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	voterID := auth.NewVoterID()
	ballot := tally.Ballot{ID: voterID, Ranks: make(map[string]int, len(req.Rankings))}
	for _, ranking := range req.Rankings {
		if _, dup := ballot.Ranks[ranking.RestaurantID]; dup {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Restaurant ranked more than once: "+ranking.RestaurantID)
			return
		}
		ballot.Ranks[ranking.RestaurantID] = ranking.Rank
	}

	if err := tally.Validate(candidatesOf(restaurants), ballot); err != nil {
		var invalid *tally.InvalidBallotError
		if errors.As(err, &invalid) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid rankings: "+invalid.Reason+" ("+invalid.CandidateID+")")
			return
		}
		slog.Error("failed to validate ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit vote")
		return
	}

	// Get IP hash for tracking
	clientIP := middleware.GetClientIP(r)
	ipHash := auth.HashIP(clientIP, h.cfg.AdminKeySalt) // Reuse admin salt for IP hashing
	userAgent := r.UserAgent()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// Claim a voter slot; fails if the poll closed or filled since it was read
	result, err := tx.Exec(`
		UPDATE poll
		SET voter_count = voter_count + 1
		WHERE id = $1 AND is_active AND voter_count < max_voters
	`, pollID)
	if err != nil {
		slog.Error("failed to claim voter slot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit vote")
		return
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Error("failed to read affected rows", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit vote")
		return
	}
	if affected == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll has reached maximum number of voters")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO voter (id, poll_id, ip_hash, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voterID, pollID, ipHash, userAgent, time.Now().UTC())
	if err != nil {
		slog.Error("failed to insert voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit vote")
		return
	}

	for _, ranking := range req.Rankings {
		_, err = tx.Exec(`
			INSERT INTO vote (voter_id, poll_id, restaurant_id, rank)
			VALUES ($1, $2, $3, $4)
		`, voterID, pollID, ranking.RestaurantID, ranking.Rank)
		if err != nil {
			slog.Error("failed to insert vote", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save rankings")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit vote")
		return
	}

	slog.Info("vote submitted", "poll_id", pollID, "voter_id", voterID, "rankings", len(req.Rankings))

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitVoteResponse{
		VoterID:        voterID,
		VotesSubmitted: len(req.Rankings),
		Message:        "Vote submitted successfully",
	})
}

func candidatesOf(restaurants []models.Restaurant) []tally.Candidate {
	candidates := make([]tally.Candidate, len(restaurants))
	for i, rest := range restaurants {
		candidates[i] = tally.Candidate{ID: rest.ID, Name: rest.Name}
	}
	return candidates
}
