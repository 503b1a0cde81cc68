package events

import (
	"log/slog"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Locator maps a client address to a country code and city name.
type Locator interface {
	Lookup(ip string) (country, city string)
}

// GeoIP is a Locator backed by a MaxMind database. The zero value answers
// every lookup with empty strings.
type GeoIP struct {
	db *maxminddb.Reader
}

type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

// OpenGeoIP never fails: a missing or unreadable database disables location
// enrichment with a warning.
func OpenGeoIP(path string) *GeoIP {
	if path == "" {
		return &GeoIP{}
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		slog.Warn("events: geoip database unavailable, location disabled", "path", path, "error", err)
		return &GeoIP{}
	}
	slog.Info("events: geoip database loaded", "path", path)
	return &GeoIP{db: db}
}

func (g *GeoIP) Lookup(ipStr string) (country, city string) {
	if g.db == nil {
		return "", ""
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "", ""
	}
	var rec geoRecord
	if err := g.db.Lookup(ip, &rec); err != nil {
		return "", ""
	}
	return rec.Country.ISOCode, rec.City.Names["en"]
}

func (g *GeoIP) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}
