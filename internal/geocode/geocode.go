// Package geocode turns coordinates into a display address using a
// Nominatim-compatible reverse geocoding endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wastewatch/pkg/types"

	"github.com/sirupsen/logrus"
)

type Config struct {
	BaseURL         string
	UserAgent       string
	Timeout         time.Duration
	DefaultLocality string
	DefaultCity     string
	HTTPClient      *http.Client
}

type Client struct {
	baseURL         string
	userAgent       string
	timeout         time.Duration
	defaultLocality string
	defaultCity     string
	httpClient      *http.Client
	logger          *logrus.Logger
}

func New(config Config, logger *logrus.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 4 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL:         strings.TrimRight(strings.TrimSpace(config.BaseURL), "/"),
		userAgent:       config.UserAgent,
		timeout:         config.Timeout,
		defaultLocality: config.DefaultLocality,
		defaultCity:     config.DefaultCity,
		httpClient:      config.HTTPClient,
		logger:          logger,
	}
}

type reverseResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Reverse never fails: any lookup problem yields the configured defaults,
// with the coordinates as the address.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) types.Place {
	place := types.Place{
		Address:  fmt.Sprintf("%.6f, %.6f", lat, lng),
		Locality: c.defaultLocality,
		City:     c.defaultCity,
	}
	if c.baseURL == "" {
		return place
	}

	resp, err := c.lookup(ctx, lat, lng)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{"lat": lat, "lng": lng}).Warn("reverse geocoding failed, using defaults")
		}
		return place
	}

	if name := strings.TrimSpace(resp.DisplayName); name != "" {
		place.Address = name
	}
	if v := first(resp.Address, "suburb", "neighbourhood", "quarter", "village", "hamlet"); v != "" {
		place.Locality = v
	}
	if v := first(resp.Address, "city", "town", "municipality", "county", "state_district"); v != "" {
		place.City = v
	}

	return place
}

func (c *Client) lookup(ctx context.Context, lat, lng float64) (*reverseResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create reverse request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse geocoding status %d", resp.StatusCode)
	}

	var out reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode reverse response: %w", err)
	}
	return &out, nil
}

func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}
