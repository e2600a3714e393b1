// Package geo resolves client IP addresses to an approximate location using
// the ip-api.com JSON endpoint.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "http://ip-api.com"
	defaultTimeout = 5 * time.Second
	lookupFields   = "status,message,country,city,lat,lon,isp,query"
)

type Location struct {
	IP      string
	Country string
	City    string
	Lat     float64
	Lon     float64
	ISP     string
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL; an empty baseURL uses ip-api.com.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type apiResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	ISP     string  `json:"isp"`
	Query   string  `json:"query"`
}

// Lookup resolves ip. An empty ip asks the service to locate the caller.
func (c *Client) Lookup(ctx context.Context, ip string) (Location, error) {
	ip = strings.TrimSpace(ip)
	if ip != "" && net.ParseIP(ip) == nil {
		return Location{}, fmt.Errorf("invalid ip %q", ip)
	}

	endpoint := c.baseURL + "/json/" + url.PathEscape(ip) + "?fields=" + lookupFields
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, fmt.Errorf("build geo request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geo lookup %s: %w", ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo lookup %s: unexpected status %d", ip, resp.StatusCode)
	}
	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decode geo response: %w", err)
	}
	if body.Status != "success" {
		return Location{}, fmt.Errorf("geo lookup %s failed: %s", ip, body.Message)
	}

	return Location{
		IP:      body.Query,
		Country: body.Country,
		City:    body.City,
		Lat:     body.Lat,
		Lon:     body.Lon,
		ISP:     body.ISP,
	}, nil
}
