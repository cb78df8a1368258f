// Package geoloc resolves player IP addresses into map coordinates.
// Lookups go through the upstream resolver once per address and are
// remembered by a cache goroutine; private and local addresses are a
// normal "unresolvable" outcome, never an error, so LAN players simply
// fall through to synthesized placement.
package geoloc

import (
	"context"
	"net"
	"strings"

	"media-stream-map/pkg/countryresolver"
	"media-stream-map/pkg/session"
)

// Result is what the upstream resolver reports for one address.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	ISP       string  `json:"isp"`
}

// LookupFunc fetches geolocation for one public address.  The source
// package supplies the real HTTP implementation.
type LookupFunc func(ctx context.Context, ip string) (Result, error)

// IsPrivateAddress reports whether the address can never resolve: LAN
// ranges, loopback, link-local, unspecified, or not an IP at all.
func IsPrivateAddress(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return true
	}
	return parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}

// localISP recognises resolver replies that label an address as local
// rather than failing it, which some upstreams do for LAN clients.
func localISP(isp string) bool {
	switch strings.ToLower(strings.TrimSpace(isp)) {
	case "local", "private", "lan", "private address", "local address":
		return true
	}
	return false
}

// cached is one remembered answer.  Failed lookups are remembered too so
// a dead address is not retried on every poll cycle.
type cached struct {
	loc session.Location
	ok  bool
}

type getReq struct {
	ip    string
	reply chan *cached
}

type putReq struct {
	ip    string
	entry cached
}

// Cache wraps a LookupFunc with a goroutine-owned memory of previous
// answers.  All map access happens inside run, so Resolve is safe to
// call from any number of goroutines without locks.
type Cache struct {
	lookup LookupFunc
	gets   chan getReq
	puts   chan putReq
}

// NewCache starts the cache goroutine.  It lives for the process
// lifetime, like the marker fan-out bus.
func NewCache(lookup LookupFunc) *Cache {
	c := &Cache{
		lookup: lookup,
		gets:   make(chan getReq),
		puts:   make(chan putReq),
	}
	go c.run()
	return c
}

func (c *Cache) run() {
	entries := make(map[string]cached)
	for {
		select {
		case req := <-c.gets:
			if e, ok := entries[req.ip]; ok {
				req.reply <- &e
			} else {
				req.reply <- nil
			}
		case req := <-c.puts:
			entries[req.ip] = req.entry
		}
	}
}

// Resolve returns the location for an address and whether it resolved.
// The second return is false for private addresses and failed lookups;
// callers then synthesize a placement instead of dropping the session.
func (c *Cache) Resolve(ctx context.Context, ip string) (session.Location, bool) {
	if IsPrivateAddress(ip) {
		return session.Location{}, false
	}

	reply := make(chan *cached, 1)
	c.gets <- getReq{ip: ip, reply: reply}
	if e := <-reply; e != nil {
		return e.loc, e.ok
	}

	entry := c.fetch(ctx, ip)
	c.puts <- putReq{ip: ip, entry: entry}
	return entry.loc, entry.ok
}

// Enrich resolves every record's address in place before normalization.
// Records that stay unresolved keep GeoResolved false and end up on the
// synthesized ring around the server.
func (c *Cache) Enrich(ctx context.Context, raws []session.Raw) {
	for i := range raws {
		loc, ok := c.Resolve(ctx, raws[i].IP)
		raws[i].Geo = loc
		raws[i].GeoResolved = ok
	}
}

// fetch performs the real lookup and normalises the answer.  A missing
// country is backfilled from the coordinates so the per-country stats
// stay populated even when the upstream omits it.
func (c *Cache) fetch(ctx context.Context, ip string) cached {
	res, err := c.lookup(ctx, ip)
	if err != nil {
		return cached{}
	}
	if localISP(res.ISP) {
		return cached{}
	}
	if res.Latitude == 0 && res.Longitude == 0 {
		return cached{}
	}
	loc := session.Location{
		Lat:     res.Latitude,
		Lon:     res.Longitude,
		City:    res.City,
		Country: strings.ToUpper(strings.TrimSpace(res.Country)),
	}
	if loc.Country == "" {
		loc.Country, _ = countryresolver.Resolve(loc.Lat, loc.Lon)
	}
	return cached{loc: loc, ok: true}
}
