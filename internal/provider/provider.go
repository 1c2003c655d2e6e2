package provider

import (
	"context"
	"errors"
	"sort"
	"time"

	"stockapi/internal/ratelimit"
)

// Failure classes reported by adapters. The orchestrator decides what to do
// with each; adapters never retry on their own.
var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrRateLimited         = errors.New("rate limited by upstream")
	ErrNotFound            = errors.New("symbol not found")
	ErrMalformedResponse   = errors.New("malformed upstream response")
)

// Origin tags carried in the Source field of served data.
const (
	SourceReal      = "real"
	SourceCache     = "cache"
	SourceSynthetic = "synthetic"
)

// Quote is the normalized shape returned by all providers.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"current_price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PrevClose     float64   `json:"previous_close"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
}

// HistoryPoint is a single OHLCV bar.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// HistorySeries is ordered ascending by timestamp with no duplicates.
type HistorySeries []HistoryPoint

// Closes returns the closing prices in series order.
func (s HistorySeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

// Normalize sorts the series ascending and drops duplicate timestamps,
// keeping the last bar seen for each timestamp.
func (s HistorySeries) Normalize() HistorySeries {
	if len(s) < 2 {
		return s
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].Timestamp.Before(s[j].Timestamp) })
	out := s[:1]
	for _, p := range s[1:] {
		if p.Timestamp.Equal(out[len(out)-1].Timestamp) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// SearchResult is one match for a symbol/name query.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}

// Provider is one upstream market-data source. Implementations must be safe
// for concurrent use across symbols and must map upstream failures onto the
// error classes above.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
	History(ctx context.Context, symbol string, period Period) (HistorySeries, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
	Quota() ratelimit.Quota
}
