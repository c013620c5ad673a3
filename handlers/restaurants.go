// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/ranked-eats/middleware"
	"github.com/danielhkuo/ranked-eats/models"
)

const (
	defaultRestaurantLimit = 50
	maxRestaurantLimit     = 200
)

type RestaurantHandler struct {
	db *sql.DB
}

func NewRestaurantHandler(db *sql.DB) *RestaurantHandler {
	return &RestaurantHandler{db: db}
}

// ListRestaurants handles GET /restaurants
// Optional ?limit= caps the page size
func (h *RestaurantHandler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	limit := defaultRestaurantLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRestaurantLimit {
			middleware.ErrorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", maxRestaurantLimit))
			return
		}
		limit = n
	}

	rows, err := h.db.Query(`
		SELECT id, name, location, place_id
		FROM restaurant
		ORDER BY name, id
		LIMIT $1
	`, limit)
	if err != nil {
		slog.Error("failed to query restaurants", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	restaurants, err := scanRestaurants(rows)
	if err != nil {
		slog.Error("failed to read restaurants", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.RestaurantsResponse{
		Restaurants: restaurants,
	})
}
