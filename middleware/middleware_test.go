// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/ranked-eats/auth"
	"github.com/danielhkuo/ranked-eats/models"
	"github.com/danielhkuo/ranked-eats/ratelimit"
)

func TestWithLogging(t *testing.T) {
	var gotPollID string
	vote := func(w http.ResponseWriter, r *http.Request) {
		gotPollID = r.PathValue("id")
		JSONResponse(w, http.StatusCreated, models.SubmitVoteResponse{VoterID: "v1", VotesSubmitted: 3})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /polls/{id}/votes", WithLogging(vote))

	req := httptest.NewRequest("POST", "/polls/lunch-42/votes", strings.NewReader(`{"rankings":[]}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if gotPollID != "lunch-42" {
		t.Errorf("Expected handler to see poll id 'lunch-42', got %q", gotPollID)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}

	var resp models.SubmitVoteResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.VoterID != "v1" || resp.VotesSubmitted != 3 {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestWithLogging_PreservesResponse(t *testing.T) {
	// Each status the API hands back must pass through untouched
	testCases := []struct {
		name       string
		method     string
		path       string
		statusCode int
		message    string
	}{
		{"poll created", "POST", "/polls", http.StatusCreated, ""},
		{"results", "GET", "/polls/p1/results", http.StatusOK, ""},
		{"bad ballot", "POST", "/polls/p1/votes", http.StatusBadRequest, "Invalid rankings: duplicate rank"},
		{"wrong admin key", "POST", "/polls/p1/close", http.StatusUnauthorized, "Invalid admin key"},
		{"unknown poll", "GET", "/polls/missing", http.StatusNotFound, "Poll not found"},
		{"poll full", "POST", "/polls/p1/votes", http.StatusConflict, "Poll has reached maximum number of voters"},
		{"database down", "GET", "/restaurants", http.StatusInternalServerError, "Database error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				if tc.message == "" {
					JSONResponse(w, tc.statusCode, map[string]string{"path": r.URL.Path})
					return
				}
				ErrorResponse(w, tc.statusCode, tc.message)
			})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if tc.message != "" && !strings.Contains(w.Body.String(), tc.message) {
				t.Errorf("Expected body to contain %q, got %s", tc.message, w.Body.String())
			}
		})
	}
}

func TestJSONResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		data       interface{}
		expected   string
	}{
		{
			name:       "poll summary",
			statusCode: http.StatusOK,
			data: models.PollSummary{
				ID: "p1", Title: "Friday lunch", IsActive: true,
				MaxRankings: 4, MaxVoters: 10, CurrentVoters: 2,
				Restaurants: []models.Restaurant{{ID: "r1", Name: "Pizza"}, {ID: "r2", Name: "Sushi", Location: "2 Main St"}},
			},
			expected: `{"id":"p1","title":"Friday lunch","description":"","is_active":true,"max_rankings":4,"max_voters":10,` +
				`"current_voters":2,"has_reached_max_voters":false,` +
				`"restaurants":[{"id":"r1","name":"Pizza"},{"id":"r2","name":"Sushi","location":"2 Main St"}]}`,
		},
		{
			name:       "vote accepted",
			statusCode: http.StatusCreated,
			data:       models.SubmitVoteResponse{VoterID: "abc123", VotesSubmitted: 3, Message: "Vote submitted successfully"},
			expected:   `{"voter_id":"abc123","votes_submitted":3,"message":"Vote submitted successfully"}`,
		},
		{
			name:       "results before any vote",
			statusCode: http.StatusOK,
			data:       models.ResultsResponse{Results: []models.RestaurantResult{}, MaxVoters: 5, PollTitle: "Dinner"},
			expected:   `{"results":[],"total_voters":0,"max_voters":5,"poll_title":"Dinner"}`,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			data:       models.ErrorResponse{Error: "Too Many Requests", RetryAfter: "2025-06-01T12:01:00Z"},
			expected:   `{"error":"Too Many Requests","retry_after":"2025-06-01T12:01:00Z"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			JSONResponse(w, tc.statusCode, tc.data)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
			}

			// Encode appends a newline
			body := strings.TrimSpace(w.Body.String())
			if body != tc.expected {
				t.Errorf("Expected body '%s', got '%s'", tc.expected, body)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	testCases := []struct {
		name          string
		statusCode    int
		message       string
		expectedError string
	}{
		{"missing title", http.StatusBadRequest, "title is required", "Bad Request"},
		{"bad admin key", http.StatusUnauthorized, "Invalid admin key", "Unauthorized"},
		{"unknown poll", http.StatusNotFound, "Poll not found", "Not Found"},
		{"closed poll", http.StatusConflict, "Poll is no longer active", "Conflict"},
		{"database down", http.StatusInternalServerError, "Database error", "Internal Server Error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			ErrorResponse(w, tc.statusCode, tc.message)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Error != tc.expectedError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectedError, resp.Error)
			}
			if resp.Message != tc.message {
				t.Errorf("Expected message '%s', got '%s'", tc.message, resp.Message)
			}
			if resp.RetryAfter != "" {
				t.Errorf("Expected no retry_after, got %q", resp.RetryAfter)
			}
		})
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("ballot", func(t *testing.T) {
		body := `{"rankings":[{"restaurant_id":"r1","rank":2},{"restaurant_id":"r2","rank":1}]}`
		req := httptest.NewRequest("POST", "/polls/p1/votes", strings.NewReader(body))

		var vote models.SubmitVoteRequest
		if err := ParseJSONBody(req, &vote); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		want := []models.Ranking{{RestaurantID: "r1", Rank: 2}, {RestaurantID: "r2", Rank: 1}}
		if len(vote.Rankings) != len(want) {
			t.Fatalf("Expected %d rankings, got %d", len(want), len(vote.Rankings))
		}
		for i := range want {
			if vote.Rankings[i] != want[i] {
				t.Errorf("Ranking %d: expected %+v, got %+v", i, want[i], vote.Rankings[i])
			}
		}
	})

	t.Run("poll with selected restaurants", func(t *testing.T) {
		body := `{"title":"Team dinner","max_voters":5,"restaurant_ids":["r1","r2","r3"],"organizer":"ignored"}`
		req := httptest.NewRequest("POST", "/polls", strings.NewReader(body))

		var poll models.CreatePollRequest
		if err := ParseJSONBody(req, &poll); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if poll.Title != "Team dinner" || poll.MaxVoters != 5 || len(poll.RestaurantIDs) != 3 {
			t.Errorf("Unexpected poll request %+v", poll)
		}
		if poll.MaxRankings != 0 || poll.RestaurantCount != 0 {
			t.Errorf("Expected unset fields to stay zero, got %+v", poll)
		}
	})

	t.Run("rank as string", func(t *testing.T) {
		body := `{"rankings":[{"restaurant_id":"r1","rank":"first"}]}`
		req := httptest.NewRequest("POST", "/polls/p1/votes", strings.NewReader(body))

		var vote models.SubmitVoteRequest
		if err := ParseJSONBody(req, &vote); err == nil {
			t.Error("Expected error for non-numeric rank")
		}
	})

	t.Run("truncated JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/polls/p1/votes", strings.NewReader(`{"rankings":[`))

		var vote models.SubmitVoteRequest
		if err := ParseJSONBody(req, &vote); err == nil {
			t.Error("Expected error for truncated JSON")
		}
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/polls", strings.NewReader(""))

		var poll models.CreatePollRequest
		if err := ParseJSONBody(req, &poll); err == nil {
			t.Error("Expected error for empty body")
		}
	})

	t.Run("body is consumed", func(t *testing.T) {
		body := io.NopCloser(bytes.NewReader([]byte(`{"title":"Brunch","restaurant_count":3}`)))
		req := httptest.NewRequest("POST", "/polls", body)

		var poll models.CreatePollRequest
		_ = ParseJSONBody(req, &poll)

		remaining, _ := io.ReadAll(req.Body)
		if len(remaining) > 0 {
			t.Errorf("Expected body to be consumed, %d bytes left", len(remaining))
		}
	})
}

func TestCORS(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("handled"))
	})

	corsHandler := CORS(nextHandler, []string{"http://localhost:5173", "https://example.com"})

	t.Run("preflight request", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/polls", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		// Browsers send the requested headers lowercased and sorted
		req.Header.Set("Access-Control-Request-Headers", "content-type,x-admin-key")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Code >= 300 {
			t.Errorf("Expected 2xx for preflight, got %d", w.Code)
		}
		if w.Body.String() == "handled" {
			t.Error("Preflight should not reach the next handler")
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
			t.Error("Expected Access-Control-Allow-Origin to match request origin")
		}
		if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("Expected Access-Control-Allow-Credentials to be 'true'")
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "POST") {
			t.Error("Expected POST in allowed methods")
		}
		allowedHeaders := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
		if !strings.Contains(allowedHeaders, "x-admin-key") {
			t.Errorf("Expected X-Admin-Key in allowed headers, got %q", allowedHeaders)
		}
	})

	t.Run("regular request with allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls/abc", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
			t.Error("Expected Access-Control-Allow-Origin to reflect request origin")
		}
	})

	t.Run("disallowed origin gets no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls/abc", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected no Access-Control-Allow-Origin, got %q", got)
		}
	})
}

type fakeLimiter struct {
	result ratelimit.Result
	err    error
	keys   []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	f.keys = append(f.keys, key)
	return f.result, f.err
}

func TestWithRateLimit(t *testing.T) {
	okHandler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("voted"))
	}

	t.Run("allowed request reaches handler", func(t *testing.T) {
		limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Limit: 5, Remaining: 4}}
		handler := WithRateLimit(limiter, "salt", okHandler)

		req := httptest.NewRequest("POST", "/polls/p1/votes", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		w := httptest.NewRecorder()
		handler(w, req)

		if w.Code != http.StatusCreated {
			t.Errorf("Expected status 201, got %d", w.Code)
		}
		if len(limiter.keys) != 1 || limiter.keys[0] != auth.HashIP("203.0.113.9", "salt") {
			t.Errorf("Expected hashed client IP as key, got %v", limiter.keys)
		}
	})

	t.Run("denied request gets 429", func(t *testing.T) {
		reset := time.Now().Add(30 * time.Second)
		limiter := &fakeLimiter{result: ratelimit.Result{Allowed: false, Limit: 5, Remaining: 0, Reset: reset}}
		handler := WithRateLimit(limiter, "salt", okHandler)

		req := httptest.NewRequest("POST", "/polls/p1/votes", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("Expected status 429, got %d", w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "5" {
			t.Errorf("Expected X-RateLimit-Limit 5, got %q", w.Header().Get("X-RateLimit-Limit"))
		}
		if w.Header().Get("X-RateLimit-Remaining") != "0" {
			t.Errorf("Expected X-RateLimit-Remaining 0, got %q", w.Header().Get("X-RateLimit-Remaining"))
		}
		retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
		if err != nil || retryAfter < 1 || retryAfter > 30 {
			t.Errorf("Expected Retry-After in 1..30, got %q", w.Header().Get("Retry-After"))
		}

		var resp models.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.RetryAfter != reset.UTC().Format(time.RFC3339) {
			t.Errorf("Expected retry_after %s, got %s", reset.UTC().Format(time.RFC3339), resp.RetryAfter)
		}
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		limiter := &fakeLimiter{err: errors.New("redis down")}
		handler := WithRateLimit(limiter, "salt", okHandler)

		req := httptest.NewRequest("POST", "/polls/p1/votes", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		if w.Code != http.StatusCreated {
			t.Errorf("Expected request to pass through, got %d", w.Code)
		}
	})
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{
			name:       "voter behind a load balancer",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.20"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "198.51.100.20",
		},
		{
			name:       "voter behind several proxies",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18, 150.172.238.178"},
			remoteAddr: "127.0.0.1:12345",
			expectedIP: "203.0.113.195",
		},
		{
			name:       "X-Forwarded-For wins over X-Real-IP",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.20", "X-Real-IP": "203.0.113.50"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "198.51.100.20",
		},
		{
			name:       "X-Real-IP from nginx",
			headers:    map[string]string{"X-Real-IP": " 203.0.113.50 "},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "203.0.113.50",
		},
		{
			name:       "direct connection",
			remoteAddr: "192.0.2.50:54321",
			expectedIP: "192.0.2.50",
		},
		{
			name:       "direct connection without port",
			remoteAddr: "192.0.2.50",
			expectedIP: "192.0.2.50",
		},
		{
			name:       "direct IPv6 connection",
			remoteAddr: "[::1]:12345",
			expectedIP: "::1",
		},
		{
			name:       "IPv6 voter behind a proxy",
			headers:    map[string]string{"X-Forwarded-For": "2001:db8::1"},
			remoteAddr: "127.0.0.1:12345",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "empty X-Forwarded-For",
			headers:    map[string]string{"X-Forwarded-For": ""},
			remoteAddr: "10.0.0.5:8080",
			expectedIP: "10.0.0.5",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/polls/p1/votes", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			if got := GetClientIP(req); got != tc.expectedIP {
				t.Errorf("Expected IP '%s', got '%s'", tc.expectedIP, got)
			}
		})
	}
}

func TestGetClientIP_RateLimitKeys(t *testing.T) {
	// The same voter through different proxy chains shares one rate limit key
	key := func(remoteAddr, xff string) string {
		req := httptest.NewRequest("POST", "/polls/p1/votes", nil)
		req.RemoteAddr = remoteAddr
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		return auth.HashIP(GetClientIP(req), "salt")
	}

	alice := key("10.0.0.1:1000", "203.0.113.7")
	aliceAgain := key("10.0.0.2:2000", "203.0.113.7, 10.0.0.9")
	bob := key("10.0.0.1:1000", "203.0.113.8")

	if alice != aliceAgain {
		t.Errorf("Expected one key per voter, got %s and %s", alice, aliceAgain)
	}
	if alice == bob {
		t.Error("Expected voters behind the same proxy to get different keys")
	}
}
