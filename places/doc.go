// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package places looks up restaurants to fill the candidate pool.

GoogleClient geocodes a location such as "San Francisco, CA" and walks the
Places nearby-search pages for restaurants within Radius meters:

	client, err := places.NewGoogleClient(apiKey)
	restaurants, err := client.SearchRestaurants(ctx, "San Francisco, CA", 20)

Nearby search omits the street address, so each place without one is looked
up through Place Details. If that lookup fails the vicinity is used instead.

Google only accepts a next_page_token after a short delay, so the client waits
PageDelay between pages. Tests point the client at an httptest server with
maps.WithBaseURL and set PageDelay to zero.
*/
package places
