package iq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/daimoniac/waiverreport/internal/config"
	"github.com/daimoniac/waiverreport/internal/errors"
	"github.com/daimoniac/waiverreport/internal/observability"
	"github.com/daimoniac/waiverreport/internal/types"
)

// WaiversPath is the component waivers report endpoint, relative to the server URL.
const WaiversPath = "/api/v2/reports/components/waivers"

// Fetcher retrieves the waiver report from the policy server
type Fetcher interface {
	// FetchWaivers performs a single GET and decodes the response
	FetchWaivers(ctx context.Context) (*types.WaiverReport, error)
}

// Client implements Fetcher against the IQ Server REST API
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new IQ Server client
func NewClient(cfg config.ServerConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		// Zero timeout leaves the transport defaults in charge.
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Endpoint returns the full waivers report URL
func (c *Client) Endpoint() string {
	return c.baseURL + WaiversPath
}

// FetchWaivers performs GET {baseURL}/api/v2/reports/components/waivers with basic auth
func (c *Client) FetchWaivers(ctx context.Context) (*types.WaiverReport, error) {
	endpoint := c.Endpoint()
	startTime := time.Now()
	c.logger.Debug("fetching repository waivers", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	observability.GetMetrics().FetchDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		observability.GetMetrics().FetchErrors.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("failed to fetch waivers from %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.GetMetrics().FetchErrors.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}

	c.logger.Debug("waivers response received",
		"url", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(startTime),
		"bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.GetMetrics().FetchErrors.WithLabelValues("http").Inc()
		return nil, errors.NewHTTPError(resp.StatusCode, resp.Status, endpoint, body)
	}

	var report types.WaiverReport
	if err := json.Unmarshal(body, &report); err != nil {
		observability.GetMetrics().FetchErrors.WithLabelValues("parse").Inc()
		return nil, errors.NewParse(fmt.Errorf("invalid waivers response from %s: %w", endpoint, err))
	}

	return &report, nil
}
