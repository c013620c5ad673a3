// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/ranked-eats/auth"
	"github.com/danielhkuo/ranked-eats/cliparse"
	"github.com/danielhkuo/ranked-eats/middleware"
	"github.com/danielhkuo/ranked-eats/models"
)

// selectionError is a candidate selection problem the client can fix
type selectionError string

func (e selectionError) Error() string { return string(e) }

type PollHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config) *PollHandler {
	return &PollHandler{db: db, cfg: cfg}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.MaxRankings == 0 {
		req.MaxRankings = models.DefaultMaxRankings
	}
	if req.MaxRankings < 1 || req.MaxRankings > models.MaxMaxRankings {
		middleware.ErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("max_rankings must be between 1 and %d", models.MaxMaxRankings))
		return
	}
	if req.MaxVoters == 0 {
		req.MaxVoters = models.DefaultMaxVoters
	}
	if req.MaxVoters < 1 || req.MaxVoters > models.MaxMaxVoters {
		middleware.ErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("max_voters must be between 1 and %d", models.MaxMaxVoters))
		return
	}
	if len(req.RestaurantIDs) == 0 && req.RestaurantCount == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "restaurant_ids or restaurant_count is required")
		return
	}
	if len(req.RestaurantIDs) == 0 && (req.RestaurantCount < models.MinRestaurants || req.RestaurantCount > models.MaxRestaurants) {
		middleware.ErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("restaurant_count must be between %d and %d", models.MinRestaurants, models.MaxRestaurants))
		return
	}

	// Generate poll ID
	pollID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate poll ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var restaurants []models.Restaurant
	if len(req.RestaurantIDs) > 0 {
		restaurants, err = selectedRestaurants(tx, req.RestaurantIDs)
	} else {
		restaurants, err = randomRestaurants(tx, req.RestaurantCount)
	}
	var badSelection selectionError
	if errors.As(err, &badSelection) {
		middleware.ErrorResponse(w, http.StatusBadRequest, badSelection.Error())
		return
	}
	if err != nil {
		slog.Error("failed to select restaurants", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	poll := models.Poll{
		ID:          pollID,
		Title:       req.Title,
		Description: req.Description,
		MaxRankings: req.MaxRankings,
		MaxVoters:   req.MaxVoters,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	// Insert poll into database
	_, err = tx.Exec(`
		INSERT INTO poll (id, title, description, max_rankings, max_voters, voter_count, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`, poll.ID, poll.Title, poll.Description, poll.MaxRankings, poll.MaxVoters, true, poll.CreatedAt)
	if err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	// Position is the candidate order used to break ties in results
	for i, restaurant := range restaurants {
		_, err = tx.Exec(`
			INSERT INTO poll_restaurant (poll_id, restaurant_id, position)
			VALUES ($1, $2, $3)
		`, poll.ID, restaurant.ID, i)
		if err != nil {
			slog.Error("failed to link restaurant", "error", err, "restaurant_id", restaurant.ID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", poll.ID, "restaurants", len(restaurants), "max_voters", poll.MaxVoters)

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		Poll: models.PollWithRestaurants{
			Poll:        poll,
			Restaurants: restaurants,
		},
		AdminKey: auth.GenerateAdminKey(poll.ID, h.cfg.AdminKeySalt),
		Message:  "Poll created successfully",
	})
}

// selectedRestaurants loads explicitly chosen restaurants, keeping request order
func selectedRestaurants(tx *sql.Tx, ids []string) ([]models.Restaurant, error) {
	if len(ids) < models.MinRestaurants || len(ids) > models.MaxRestaurants {
		return nil, selectionError(fmt.Sprintf("restaurant_ids must contain between %d and %d restaurants",
			models.MinRestaurants, models.MaxRestaurants))
	}

	seen := make(map[string]bool, len(ids))
	restaurants := make([]models.Restaurant, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, selectionError("duplicate restaurant " + id)
		}
		seen[id] = true

		var rest models.Restaurant
		var placeID sql.NullString
		err := tx.QueryRow(`
			SELECT id, name, location, place_id
			FROM restaurant
			WHERE id = $1
		`, id).Scan(&rest.ID, &rest.Name, &rest.Location, &placeID)
		if err == sql.ErrNoRows {
			return nil, selectionError("unknown restaurant " + id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query restaurant: %w", err)
		}
		rest.PlaceID = placeID.String
		restaurants = append(restaurants, rest)
	}

	return restaurants, nil
}

// randomRestaurants samples count restaurants from the pool
func randomRestaurants(tx *sql.Tx, count int) ([]models.Restaurant, error) {
	rows, err := tx.Query(`
		SELECT id, name, location, place_id
		FROM restaurant
		ORDER BY RANDOM()
		LIMIT $1
	`, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer rows.Close()

	restaurants, err := scanRestaurants(rows)
	if err != nil {
		return nil, err
	}
	if len(restaurants) < count {
		return nil, selectionError(fmt.Sprintf("not enough restaurants available, need %d but only %d exist",
			count, len(restaurants)))
	}

	return restaurants, nil
}

// GetPollAdmin handles GET /polls/:id/admin
// Returns poll details for admin access using poll ID and admin key
func (h *PollHandler) GetPollAdmin(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
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

	middleware.JSONResponse(w, http.StatusOK, models.PollWithRestaurants{
		Poll:        poll,
		Restaurants: restaurants,
	})
}

// ClosePoll handles POST /polls/:id/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	closedAt := time.Now().UTC()

	// Only an active poll flips, so concurrent closes cannot both succeed
	result, err := h.db.Exec(`
		UPDATE poll
		SET is_active = $1, closed_at = $2
		WHERE id = $3 AND is_active
	`, false, closedAt, pollID)
	if err != nil {
		slog.Error("failed to close poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close poll")
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Error("failed to read affected rows", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close poll")
		return
	}

	if affected == 0 {
		var exists bool
		err := h.db.QueryRow("SELECT EXISTS (SELECT 1 FROM poll WHERE id = $1)", pollID).Scan(&exists)
		if err != nil {
			slog.Error("failed to query poll", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if !exists {
			middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
			return
		}
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is already closed")
		return
	}

	slog.Info("poll closed", "poll_id", pollID)

	middleware.JSONResponse(w, http.StatusOK, models.ClosePollResponse{
		PollID:   pollID,
		ClosedAt: closedAt,
	})
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

// getPoll loads a poll row; returns sql.ErrNoRows when it does not exist
func getPoll(q queryer, pollID string) (models.Poll, error) {
	var poll models.Poll
	var description sql.NullString
	var closedAt sql.NullTime
	err := q.QueryRow(`
		SELECT id, title, description, max_rankings, max_voters, voter_count,
		       is_active, closed_at, created_at
		FROM poll
		WHERE id = $1
	`, pollID).Scan(
		&poll.ID, &poll.Title, &description, &poll.MaxRankings, &poll.MaxVoters,
		&poll.VoterCount, &poll.IsActive, &closedAt, &poll.CreatedAt,
	)
	if err != nil {
		return models.Poll{}, err
	}

	poll.Description = description.String
	if closedAt.Valid {
		poll.ClosedAt = &closedAt.Time
	}
	return poll, nil
}

// pollRestaurants returns a poll's restaurants in candidate order
func pollRestaurants(q queryer, pollID string) ([]models.Restaurant, error) {
	rows, err := q.Query(`
		SELECT r.id, r.name, r.location, r.place_id
		FROM poll_restaurant pr
		JOIN restaurant r ON r.id = pr.restaurant_id
		WHERE pr.poll_id = $1
		ORDER BY pr.position
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query poll restaurants: %w", err)
	}
	defer rows.Close()

	return scanRestaurants(rows)
}

func scanRestaurants(rows *sql.Rows) ([]models.Restaurant, error) {
	restaurants := []models.Restaurant{}
	for rows.Next() {
		var rest models.Restaurant
		var placeID sql.NullString
		if err := rows.Scan(&rest.ID, &rest.Name, &rest.Location, &placeID); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		rest.PlaceID = placeID.String
		restaurants = append(restaurants, rest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate restaurants: %w", err)
	}
	return restaurants, nil
}
