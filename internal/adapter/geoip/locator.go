package geoip

import (
	"context"
	"fmt"
	"net"

	mx "github.com/oschwald/maxminddb-golang"

	"github.com/couchcryptid/weather-lens-service/internal/domain"
)

// lookuper is the subset of *maxminddb.Reader the locator needs.
type lookuper interface {
	Lookup(ip net.IP, result any) error
	Close() error
}

// record is the slice of a GeoIP2/GeoLite2 City entry we decode.
type record struct {
	Country struct {
		IsoCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Location struct {
		Lat *float64 `maxminddb:"latitude"`
		Lng *float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// Locator resolves client IP addresses against a MaxMind City database.
// It implements domain.Geolocator.
type Locator struct {
	db lookuper
}

// Open memory-maps the database at path.
func Open(path string) (*Locator, error) {
	db, err := mx.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	return &Locator{db: db}, nil
}

// Locate returns the approximate position of ip. Addresses missing from the
// database, or without coordinates, yield domain.ErrLocationUnknown.
func (l *Locator) Locate(ctx context.Context, ip string) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return domain.Coordinates{}, fmt.Errorf("invalid ip %q", ip)
	}

	var rec record
	if err := l.db.Lookup(parsed, &rec); err != nil {
		return domain.Coordinates{}, fmt.Errorf("lookup ip %s: %w", ip, err)
	}
	return coordinates(rec)
}

func coordinates(rec record) (domain.Coordinates, error) {
	if rec.Location.Lat == nil || rec.Location.Lng == nil {
		return domain.Coordinates{}, domain.ErrLocationUnknown
	}
	return domain.Coordinates{Latitude: *rec.Location.Lat, Longitude: *rec.Location.Lng}, nil
}

func (l *Locator) Close() error {
	return l.db.Close()
}
