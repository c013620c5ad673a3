// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/ranked-eats/auth"
	"github.com/danielhkuo/ranked-eats/cliparse"
	"github.com/danielhkuo/ranked-eats/db"
)

// TestDBURL is the connection string for the test database.
// Every SetupTestDB call gets its own private in-memory database.
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.Migrate(conn, db.TypeSQLite, TestDBURL); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  TestDBURL,
		DatabaseType: db.TypeSQLite,
		AdminKeySalt: "test-admin-salt",
		RateLimit:    5,
		RateWindow:   time.Minute,
		CORSOrigins:  []string{"*"},
	}
}

// AddTestRestaurant adds a restaurant to the pool and returns its ID
func AddTestRestaurant(t *testing.T, conn *sql.DB, name string) string {
	t.Helper()

	restaurantID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO restaurant (id, name, location, place_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, restaurantID, name, name+" Street", "place-"+restaurantID, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test restaurant: %v", err)
	}

	return restaurantID
}

// AddTestRestaurants adds n restaurants named "Restaurant 1".."Restaurant n"
func AddTestRestaurants(t *testing.T, conn *sql.DB, n int) []string {
	t.Helper()

	ids := make([]string, n)
	for i := range ids {
		ids[i] = AddTestRestaurant(t, conn, "Restaurant "+string(rune('A'+i)))
	}
	return ids
}

// CreateTestPoll creates a poll over the given restaurants, in order, and returns
// its ID and admin key. A closed poll has is_active false and closed_at set.
func CreateTestPoll(t *testing.T, conn *sql.DB, cfg cliparse.Config, restaurantIDs []string, maxVoters int, active bool) (pollID, adminKey string) {
	t.Helper()

	pollID, _ = auth.GenerateID(16)
	adminKey = auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)

	var closedAt *time.Time
	if !active {
		now := time.Now()
		closedAt = &now
	}

	_, err := conn.Exec(`
		INSERT INTO poll (id, title, description, max_rankings, max_voters, voter_count, is_active, closed_at, created_at)
		VALUES ($1, 'Test Poll', 'A test poll', 4, $2, 0, $3, $4, $5)
	`, pollID, maxVoters, active, closedAt, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	for i, restaurantID := range restaurantIDs {
		_, err := conn.Exec(`
			INSERT INTO poll_restaurant (poll_id, restaurant_id, position)
			VALUES ($1, $2, $3)
		`, pollID, restaurantID, i)
		if err != nil {
			t.Fatalf("Failed to link test restaurant: %v", err)
		}
	}

	return pollID, adminKey
}

// SubmitTestVote records one voter's ranks directly, bypassing the handler.
// The poll's voter count is incremented the same way the vote handler does.
func SubmitTestVote(t *testing.T, conn *sql.DB, pollID string, ranks map[string]int) string {
	t.Helper()

	voterID := auth.NewVoterID()

	_, err := conn.Exec(`UPDATE poll SET voter_count = voter_count + 1 WHERE id = $1`, pollID)
	if err != nil {
		t.Fatalf("Failed to count test voter: %v", err)
	}

	_, err = conn.Exec(`
		INSERT INTO voter (id, poll_id, ip_hash, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voterID, pollID, "test-ip-hash", "testutil", time.Now())
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	for restaurantID, rank := range ranks {
		_, err := conn.Exec(`
			INSERT INTO vote (voter_id, poll_id, restaurant_id, rank)
			VALUES ($1, $2, $3, $4)
		`, voterID, pollID, restaurantID, rank)
		if err != nil {
			t.Fatalf("Failed to create test vote: %v", err)
		}
	}

	return voterID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
