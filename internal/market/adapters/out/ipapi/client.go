package ipapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	out "una/internal/market/application/ports/out"
	"una/internal/shared/config"
)

const maxBody = 64 << 10

// Client — клиент ipapi.co-совместимого сервиса: GET {base}/{ip}/json/
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.GeoIPConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return NewClientWithHTTP(cfg.BaseURL, &http.Client{Timeout: timeout})
}

func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

var _ out.IPLocator = (*Client)(nil)

type response struct {
	IP          string `json:"ip"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	City        string `json:"city"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Locate. Пустой ip — сервис определяет адрес сам.
func (c *Client) Locate(ctx context.Context, ip string) (*out.IPLocation, error) {
	endpoint := c.baseURL + "/json/"
	if ip = strings.TrimSpace(ip); ip != "" {
		endpoint = c.baseURL + "/" + url.PathEscape(ip) + "/json/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build geoip request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "una-market/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geoip request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, fmt.Errorf("geoip status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode geoip response: %w", err)
	}
	if body.Error {
		return nil, fmt.Errorf("geoip error: %s", body.Reason)
	}

	return &out.IPLocation{
		IP:          body.IP,
		CountryCode: strings.ToUpper(strings.TrimSpace(body.CountryCode)),
		CountryName: body.CountryName,
		City:        body.City,
	}, nil
}
