package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/updownlabs/updown/internal/domain"
)

// HTTPFeed is a PriceOracle backed by a REST price-feed service.
//
//	GET {base}/feeds/{id}      -> {"value":"...","decimals":8,"timestamp":"..."}
//	GET {base}/feeds/{id}/fee  -> {"fee":"..."}
//
// A 404 maps to domain.ErrUnknownFeed.
type HTTPFeed struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPFeed creates a client for the feed service at baseURL. apiKey may
// be empty.
func NewHTTPFeed(baseURL, apiKey string) *HTTPFeed {
	return &HTTPFeed{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type feedPriceResponse struct {
	Value     string    `json:"value"`
	Decimals  uint8     `json:"decimals"`
	Timestamp time.Time `json:"timestamp"`
}

type feedFeeResponse struct {
	Fee string `json:"fee"`
}

// LookupFee fetches the oracle's lookup fee for the feed.
func (f *HTTPFeed) LookupFee(ctx context.Context, feedID string) (*big.Int, error) {
	var resp feedFeeResponse
	if err := f.get(ctx, fmt.Sprintf("/feeds/%s/fee", url.PathEscape(feedID)), &resp); err != nil {
		return nil, err
	}
	fee, ok := new(big.Int).SetString(resp.Fee, 10)
	if !ok {
		return nil, fmt.Errorf("httpfeed: malformed fee %q for %s", resp.Fee, feedID)
	}
	return fee, nil
}

// LatestPrice fetches the feed's current price observation.
func (f *HTTPFeed) LatestPrice(ctx context.Context, feedID string) (domain.PriceData, error) {
	var resp feedPriceResponse
	if err := f.get(ctx, "/feeds/"+url.PathEscape(feedID), &resp); err != nil {
		return domain.PriceData{}, err
	}
	value, ok := new(big.Int).SetString(resp.Value, 10)
	if !ok {
		return domain.PriceData{}, fmt.Errorf("httpfeed: malformed price %q for %s", resp.Value, feedID)
	}
	return domain.PriceData{
		Value:     value,
		Decimals:  resp.Decimals,
		Timestamp: resp.Timestamp,
	}, nil
}

func (f *HTTPFeed) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("httpfeed: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("X-API-Key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpfeed: %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrUnknownFeed
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("httpfeed: %s: unexpected status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpfeed: decode %s: %w", path, err)
	}
	return nil
}

var _ domain.PriceOracle = (*HTTPFeed)(nil)
