// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ranked-eats/cliparse"
	store "github.com/danielhkuo/ranked-eats/db"
	"github.com/danielhkuo/ranked-eats/middleware"
	"github.com/danielhkuo/ranked-eats/models"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// GetPoll handles GET /polls/:id
// Returns what a voter needs to fill in a ballot
func (h *ResultsHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
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

	restaurants, err := pollRestaurants(h.db, pollID)
	if err != nil {
		slog.Error("failed to query restaurants", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollSummary{
		ID:                  poll.ID,
		Title:               poll.Title,
		Description:         poll.Description,
		IsActive:            poll.IsActive,
		MaxRankings:         poll.MaxRankings,
		MaxVoters:           poll.MaxVoters,
		CurrentVoters:       poll.VoterCount,
		HasReachedMaxVoters: poll.VoterCount >= poll.MaxVoters,
		Restaurants:         restaurants,
	})
}

// GetResults handles GET /polls/:id/results
// Standings are visible while the poll is still open
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// SQLite transactions are already serializable
	opts := &sql.TxOptions{}
	if h.cfg.DatabaseType == store.TypePostgres {
		opts.Isolation = sql.LevelRepeatableRead
	}

	pt, err := ComputePollResults(r.Context(), h.db, pollID, opts)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to compute results", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Results:     pt.Results,
		TotalVoters: pt.Voters,
		MaxVoters:   pt.Poll.MaxVoters,
		PollTitle:   pt.Poll.Title,
	})
}
