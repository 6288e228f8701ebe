package domain

import (
	"context"
	"errors"
)

// ErrLocationUnknown is returned by a Geolocator that has no position for the
// requested address.
var ErrLocationUnknown = errors.New("location unknown")

// Geolocator resolves a client network address to an approximate position.
type Geolocator interface {
	Locate(ctx context.Context, ip string) (Coordinates, error)
}
