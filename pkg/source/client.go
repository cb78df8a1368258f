// Package source talks to the media server's stats API (Tautulli
// compatible): the live activity feed, the playback history endpoint,
// and the geolocation lookup.  It returns raw records only; everything
// downstream works with normalized sessions.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"media-stream-map/pkg/geoloc"
	"media-stream-map/pkg/session"
)

// ErrUnavailable marks a whole-batch fetch failure.  The poll loop
// treats it as "skip this cycle, keep the previous markers visible"
// rather than blanking the map.
var ErrUnavailable = errors.New("session source unavailable")

// Client is a thin HTTP client for the upstream API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// New builds a client.  baseURL points at the API root, e.g.
// "http://tautulli:8181".
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// envelope is the standard response wrapper of the upstream API.  We
// decode the payload lazily so each command can pick its own shape.
type envelope struct {
	Response struct {
		Result  string          `json:"result"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"response"`
}

// call performs one API command and returns the raw data payload.
func (c *Client) call(ctx context.Context, cmd string, params url.Values) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	params.Set("cmd", cmd)

	u := c.baseURL + "/api/v2?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnavailable, cmd, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: bad payload: %v", ErrUnavailable, err)
	}
	if env.Response.Result != "success" {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, cmd, env.Response.Message)
	}
	return env.Response.Data, nil
}

// Activity fetches the live sessions currently playing.
func (c *Client) Activity(ctx context.Context) ([]session.Raw, error) {
	data, err := c.call(ctx, "get_activity", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Sessions []session.Raw `json:"sessions"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: activity payload: %v", ErrUnavailable, err)
	}
	return payload.Sessions, nil
}

// History fetches finished sessions between the two instants.  length
// caps the page size; the upstream default of 25 is useless for a map,
// so callers pass something like 1000.
func (c *Client) History(ctx context.Context, after, before time.Time, length int) ([]session.Raw, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", after.UTC().Format("2006-01-02"))
	}
	if !before.IsZero() {
		params.Set("before", before.UTC().Format("2006-01-02"))
	}
	if length > 0 {
		params.Set("length", strconv.Itoa(length))
	}
	params.Set("order_column", "started")
	params.Set("order_dir", "asc")

	data, err := c.call(ctx, "get_history", params)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Data []session.Raw `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: history payload: %v", ErrUnavailable, err)
	}
	return payload.Data, nil
}

// GeoIP looks one address up through the upstream resolver.  The
// signature matches geoloc.LookupFunc so main can wire it straight into
// the cache.
func (c *Client) GeoIP(ctx context.Context, ip string) (geoloc.Result, error) {
	params := url.Values{}
	params.Set("ip_address", ip)
	data, err := c.call(ctx, "get_geoip_lookup", params)
	if err != nil {
		return geoloc.Result{}, err
	}
	var res geoloc.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return geoloc.Result{}, fmt.Errorf("geoip payload: %w", err)
	}
	return res, nil
}
