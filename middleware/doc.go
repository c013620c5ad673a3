// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# Rate Limiting

Throttle a route per client address:

	mux.HandleFunc("POST /polls/{id}/votes",
		middleware.WithLogging(middleware.WithRateLimit(limiter, cfg.AdminKeySalt, handler)))

Rejected requests get 429 with X-RateLimit-Limit, X-RateLimit-Remaining,
X-RateLimit-Reset and Retry-After headers. If the limiter itself fails the
request is let through and the failure is logged.

# CORS Middleware

Enable cross-origin requests for the configured frontend origins:

	server := http.Server{
		Handler: middleware.CORS(mux, cfg.CORSOrigins),
	}

Allows methods GET, POST, OPTIONS with headers Content-Type, Authorization
and X-Admin-Key. Rate limit headers are exposed to the browser.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

The address is hashed before it is stored with a vote or used as a rate
limit key.
*/
package middleware
