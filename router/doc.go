// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Ranked Eats API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, limiter)

Pass ratelimit.Nop{} to disable vote throttling.

# Endpoints

Health:

	GET /health

Poll management (admin routes require X-Admin-Key):

	POST /polls             - Create poll
	GET  /polls/{id}/admin  - Get poll details
	POST /polls/{id}/close  - Stop accepting votes

Restaurants:

	GET /restaurants - Restaurant pool, ?limit= up to 200

Voting (public, rate limited per client address):

	POST /polls/{id}/votes - Submit a ranked ballot

Results (public):

	GET /polls/{id}         - Poll info and restaurants
	GET /polls/{id}/results - Borda standings
*/
package router
