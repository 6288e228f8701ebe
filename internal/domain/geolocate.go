package domain

import (
	"context"
	"log/slog"
	"time"
)

// DefaultLocation is used whenever the user's position cannot be resolved:
// central Vietnam, near Da Nang.
var DefaultLocation = Coordinates{Latitude: 16.0471, Longitude: 108.2068}

// Location sources reported by LocateUser.
const (
	LocationSourceGeoIP   = "geoip"
	LocationSourceDefault = "default"
)

// UserLocation is a best-effort user position and where it came from.
type UserLocation struct {
	Coordinates
	Source string `json:"source"`
}

// LocateUser asks locator for the position of ip, waiting at most timeout.
// A nil locator, a lookup error, an invalid position or a timeout all fall
// back to DefaultLocation (graceful degradation).
func LocateUser(ctx context.Context, locator Geolocator, ip string, timeout time.Duration, logger *slog.Logger) UserLocation {
	fallback := UserLocation{Coordinates: DefaultLocation, Source: LocationSourceDefault}
	if locator == nil {
		return fallback
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		coords Coordinates
		err    error
	}
	done := make(chan result, 1)
	go func() {
		c, err := locator.Locate(ctx, ip)
		done <- result{coords: c, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			logger.Warn("geolocation failed, using default location", "ip", ip, "error", r.err)
			return fallback
		}
		if !r.coords.Valid() {
			logger.Warn("geolocation returned invalid coordinates, using default location",
				"ip", ip, "lat", r.coords.Latitude, "lng", r.coords.Longitude)
			return fallback
		}
		return UserLocation{Coordinates: r.coords, Source: LocationSourceGeoIP}
	case <-clock.After(timeout):
		logger.Warn("geolocation timed out, using default location", "ip", ip, "timeout", timeout)
		return fallback
	case <-ctx.Done():
		logger.Warn("geolocation cancelled, using default location", "ip", ip, "error", ctx.Err())
		return fallback
	}
}
