// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/ranked-eats/cliparse"
	"github.com/danielhkuo/ranked-eats/handlers"
	"github.com/danielhkuo/ranked-eats/middleware"
	"github.com/danielhkuo/ranked-eats/ratelimit"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, limiter ratelimit.Limiter) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(db, cfg)
	restaurantHandler := handlers.NewRestaurantHandler(db)
	votingHandler := handlers.NewVotingHandler(db, cfg)
	resultsHandler := handlers.NewResultsHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll management (admin operations)
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls/{id}/admin", middleware.WithLogging(pollHandler.GetPollAdmin))
	mux.HandleFunc("POST /polls/{id}/close", middleware.WithLogging(pollHandler.ClosePoll))

	// Restaurant pool
	mux.HandleFunc("GET /restaurants", middleware.WithLogging(restaurantHandler.ListRestaurants))

	// Voting (public, rate limited per client)
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(
		middleware.WithRateLimit(limiter, cfg.AdminKeySalt, votingHandler.SubmitVote)))

	// Poll info and results (public)
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(resultsHandler.GetPoll))
	mux.HandleFunc("GET /polls/{id}/results", middleware.WithLogging(resultsHandler.GetResults))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ranked-eats API v1"))
	})

	return mux
}
