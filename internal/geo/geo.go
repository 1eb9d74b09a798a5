// Package geo resolves the device's position into a human-readable address.
package geo

import "context"

// Position is a geographic coordinate pair.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Locator yields the device's current position. Implementations are platform
// specific; the request may block arbitrarily long waiting on a permission
// grant, bounded only by ctx.
type Locator interface {
	Current(ctx context.Context) (Position, error)
}

// ReverseGeocoder turns coordinates into a display address.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, pos Position) (string, error)
}

// LocationError reports a provider failure with the provider's own message,
// suitable for showing to the user.
type LocationError struct {
	Message string
	Err     error
}

func (e *LocationError) Error() string {
	return "location error: " + e.Message
}

func (e *LocationError) Unwrap() error { return e.Err }
