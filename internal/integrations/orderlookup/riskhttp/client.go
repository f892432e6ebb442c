package riskhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup"
	"github.com/pkg/errors"
)

// Client ходит в order-lookup сервис (scoring-бэкенд) по HTTP.
// Аутентификация — API-ключ в заголовке.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type scanRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

func (c *Client) Scan(ctx context.Context, trackingNumber string) (orderlookup.ScanResult, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return orderlookup.ScanResult{}, errors.Wrap(err, "parse base url")
	}
	u.Path = "/scan"

	body, err := json.Marshal(scanRequest{TrackingNumber: trackingNumber})
	if err != nil {
		return orderlookup.ScanResult{}, errors.Wrap(err, "marshal scan request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return orderlookup.ScanResult{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return orderlookup.ScanResult{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return orderlookup.ScanResult{}, fmt.Errorf("order lookup http %d", resp.StatusCode)
	}

	var r orderlookup.ScanResult
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return orderlookup.ScanResult{}, errors.Wrap(err, "decode")
	}
	return r, nil
}

func (c *Client) TrainingStats(ctx context.Context) (orderlookup.TrainingStats, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return orderlookup.TrainingStats{}, errors.Wrap(err, "parse base url")
	}
	u.Path = "/training/stats"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return orderlookup.TrainingStats{}, errors.Wrap(err, "new request")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return orderlookup.TrainingStats{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return orderlookup.TrainingStats{}, fmt.Errorf("training stats http %d", resp.StatusCode)
	}

	var st orderlookup.TrainingStats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return orderlookup.TrainingStats{}, errors.Wrap(err, "decode")
	}
	return st, nil
}
