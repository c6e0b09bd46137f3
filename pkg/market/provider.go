package market

import (
	"context"
	"fmt"
	"strings"
)

// Provider exposes upstream market data in the normalized shapes served by the proxy.
type Provider interface {
	// Markets returns one page of market listings ordered by market cap.
	Markets(ctx context.Context, q MarketsQuery) ([]MarketCoin, error)
	// Global returns aggregate market statistics.
	Global(ctx context.Context) (*GlobalStats, error)
	// Coin returns detail metadata and a price chart for a single coin.
	// Both parts must succeed; there is no partial result.
	Coin(ctx context.Context, q CoinQuery) (*CoinResponse, error)
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 250
	DefaultPage    = 1
	DefaultDays    = 7
)

// MarketsQuery selects a page of market listings.
type MarketsQuery struct {
	Currency Currency
	PerPage  int
	Page     int
	IDs      []string // optional filter, upstream order is preserved
}

// Normalize applies defaults and bounds, and cleans the id filter.
func (q MarketsQuery) Normalize() MarketsQuery {
	if q.Currency == "" {
		q.Currency = DefaultCurrency
	}
	switch {
	case q.PerPage <= 0:
		q.PerPage = DefaultPerPage
	case q.PerPage > MaxPerPage:
		q.PerPage = MaxPerPage
	}
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	q.IDs = CleanIDs(q.IDs)
	return q
}

// CoinQuery selects a single coin's detail and chart window.
type CoinQuery struct {
	ID       string
	Currency Currency
	Days     int
}

// Normalize applies defaults.
func (q CoinQuery) Normalize() CoinQuery {
	q.ID = strings.TrimSpace(q.ID)
	if q.Currency == "" {
		q.Currency = DefaultCurrency
	}
	if q.Days <= 0 {
		q.Days = DefaultDays
	}
	return q
}

// ChartInterval returns the upstream chart granularity for a lookback window.
func ChartInterval(days int) string {
	if days <= 1 {
		return "hourly"
	}
	return "daily"
}

// CleanIDs trims, lowercases and de-duplicates coin ids, dropping empty entries.
func CleanIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SplitIDs parses a comma separated id list.
func SplitIDs(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return CleanIDs(strings.Split(csv, ","))
}

// UpstreamError reports a non-success response from the upstream API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	if body == "" {
		return fmt.Sprintf("upstream: http status %d", e.Status)
	}
	return fmt.Sprintf("upstream: http status %d: %s", e.Status, body)
}
