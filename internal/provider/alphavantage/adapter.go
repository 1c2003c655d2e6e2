package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"stockapi/internal/provider"
	"stockapi/internal/ratelimit"
)

const providerName = "alphavantage"

// Adapter exposes Alpha Vantage as a canonical quote provider.
type Adapter struct {
	client *Client
}

// NewAdapter wraps an Alpha Vantage client.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Name() string { return providerName }

// Quota reflects the free-tier limits.
func (a *Adapter) Quota() ratelimit.Quota {
	return ratelimit.Quota{Provider: providerName, PerMinute: 5, PerDay: 500}
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	var resp globalQuoteResponse
	params := url.Values{"symbol": {symbol}}
	if err := a.client.query(ctx, "GLOBAL_QUOTE", params, &resp); err != nil {
		return provider.Quote{}, fmt.Errorf("alphavantage quote %s: %w", symbol, err)
	}
	gq := resp.GlobalQuote
	if gq.Symbol == "" {
		return provider.Quote{}, fmt.Errorf("alphavantage quote %s: %w", symbol, provider.ErrNotFound)
	}

	price, err := parseFloat(gq.Price)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("alphavantage quote %s: price: %w", symbol, provider.ErrMalformedResponse)
	}
	change, _ := parseFloat(gq.Change)
	changePct, _ := parseFloat(strings.TrimSuffix(gq.ChangePercent, "%"))
	open, _ := parseFloat(gq.Open)
	high, _ := parseFloat(gq.High)
	low, _ := parseFloat(gq.Low)
	prevClose, _ := parseFloat(gq.PreviousClose)
	volume, _ := strconv.ParseInt(gq.Volume, 10, 64)

	return provider.Quote{
		Symbol:        gq.Symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Open:          open,
		High:          high,
		Low:           low,
		PrevClose:     prevClose,
		Volume:        volume,
		Timestamp:     time.Now().UTC(),
		Source:        provider.SourceReal,
	}, nil
}

func (a *Adapter) History(ctx context.Context, symbol string, period provider.Period) (provider.HistorySeries, error) {
	params := url.Values{"symbol": {symbol}}
	if period.Days() > 100 {
		params.Set("outputsize", "full")
	}
	var resp dailySeriesResponse
	if err := a.client.query(ctx, "TIME_SERIES_DAILY", params, &resp); err != nil {
		return nil, fmt.Errorf("alphavantage history %s: %w", symbol, err)
	}
	if len(resp.Series) == 0 {
		return nil, fmt.Errorf("alphavantage history %s: %w", symbol, provider.ErrNotFound)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -period.Days())
	series := make(provider.HistorySeries, 0, len(resp.Series))
	for day, bar := range resp.Series {
		ts, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			continue
		}
		closePx, err := parseFloat(bar.Close)
		if err != nil {
			return nil, fmt.Errorf("alphavantage history %s: close %s: %w", symbol, day, provider.ErrMalformedResponse)
		}
		open, _ := parseFloat(bar.Open)
		high, _ := parseFloat(bar.High)
		low, _ := parseFloat(bar.Low)
		volume, _ := strconv.ParseInt(bar.Volume, 10, 64)
		series = append(series, provider.HistoryPoint{
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePx,
			Volume:    volume,
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
	if len(series) == 0 {
		return nil, fmt.Errorf("alphavantage history %s: %w", symbol, provider.ErrNotFound)
	}
	return series, nil
}

func (a *Adapter) Search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	var resp searchResponse
	params := url.Values{"keywords": {query}}
	if err := a.client.query(ctx, "SYMBOL_SEARCH", params, &resp); err != nil {
		return nil, fmt.Errorf("alphavantage search %q: %w", query, err)
	}
	results := make([]provider.SearchResult, 0, len(resp.BestMatches))
	for _, m := range resp.BestMatches {
		results = append(results, provider.SearchResult{
			Symbol:   m.Symbol,
			Name:     m.Name,
			Exchange: m.Region,
			Type:     normalizeType(m.Type),
		})
	}
	return results, nil
}

func normalizeType(t string) string {
	switch strings.ToLower(t) {
	case "etf":
		return "ETF"
	case "mutual fund":
		return "MUTUAL_FUND"
	default:
		return "STOCK"
	}
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
