// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"googlemaps.github.io/maps"

	"github.com/danielhkuo/ranked-eats/models"
)

var ErrNoLocation = errors.New("location not found")

// Searcher finds restaurants around a human-readable location
type Searcher interface {
	SearchRestaurants(ctx context.Context, location string, limit int) ([]models.Restaurant, error)
}

type GoogleClient struct {
	client *maps.Client

	// Radius in meters around the geocoded location
	Radius uint
	// PageDelay is how long to wait before using a next_page_token;
	// Google rejects tokens that are used immediately.
	PageDelay time.Duration
}

func NewGoogleClient(apiKey string, opts ...maps.ClientOption) (*GoogleClient, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create places client: %w", err)
	}

	return &GoogleClient{
		client:    client,
		Radius:    5000,
		PageDelay: 2 * time.Second,
	}, nil
}

// SearchRestaurants geocodes location and pages through nearby restaurants
// until limit results are collected or Google has no more pages.
// Places are de-duplicated by place ID.
func (g *GoogleClient) SearchRestaurants(ctx context.Context, location string, limit int) ([]models.Restaurant, error) {
	geo, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: location})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", location, err)
	}
	if len(geo) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLocation, location)
	}

	center := geo[0].Geometry.Location
	req := &maps.NearbySearchRequest{
		Location: &center,
		Radius:   g.Radius,
		Type:     maps.PlaceTypeRestaurant,
	}

	restaurants := []models.Restaurant{}
	seen := make(map[string]bool)
	for page := 1; ; page++ {
		resp, err := g.client.NearbySearch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("nearby search page %d: %w", page, err)
		}

		for _, p := range resp.Results {
			if p.PlaceID == "" || seen[p.PlaceID] {
				continue
			}
			seen[p.PlaceID] = true

			address := p.FormattedAddress
			if address == "" {
				address = g.formattedAddress(ctx, p.PlaceID, p.Vicinity)
			}
			name := p.Name
			if name == "" {
				name = "Unknown Restaurant"
			}

			restaurants = append(restaurants, models.Restaurant{
				Name:     name,
				Location: address,
				PlaceID:  p.PlaceID,
			})
			if len(restaurants) >= limit {
				return restaurants, nil
			}
		}

		if resp.NextPageToken == "" {
			break
		}

		slog.Debug("fetching next places page", "location", location, "page", page+1, "found", len(restaurants))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.PageDelay):
		}
		req.PageToken = resp.NextPageToken
	}

	return restaurants, nil
}

// formattedAddress asks Place Details for the full street address, which
// nearby search leaves out. Lookup failures fall back to the vicinity.
func (g *GoogleClient) formattedAddress(ctx context.Context, placeID, vicinity string) string {
	details, err := g.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields:  []maps.PlaceDetailsFieldMask{maps.PlaceDetailsFieldMaskFormattedAddress},
	})
	if err != nil {
		slog.Warn("place details lookup failed", "place_id", placeID, "error", err)
		return vicinity
	}
	if details.FormattedAddress == "" {
		return vicinity
	}
	return details.FormattedAddress
}
