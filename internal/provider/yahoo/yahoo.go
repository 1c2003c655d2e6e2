package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	"stockapi/internal/httpx"
	"stockapi/internal/provider"
	"stockapi/internal/ratelimit"
)

const (
	providerName  = "yahoo"
	chartBaseURL  = "https://query1.finance.yahoo.com/v8/finance/chart"
	searchBaseURL = "https://query1.finance.yahoo.com/v1/finance/search"
)

// Adapter serves quotes through the finance-go client and history/search
// through the public chart and search endpoints.
type Adapter struct {
	http      *httpx.Client
	chartURL  string
	searchURL string
	quoteFn   func(symbol string) (*finance.Quote, error)
}

// Option configures the adapter.
type Option func(*Adapter)

// WithChartURL overrides the chart endpoint (tests).
func WithChartURL(u string) Option {
	return func(a *Adapter) { a.chartURL = u }
}

// WithSearchURL overrides the search endpoint (tests).
func WithSearchURL(u string) Option {
	return func(a *Adapter) { a.searchURL = u }
}

// WithQuoteFunc overrides the quote fetcher (tests).
func WithQuoteFunc(fn func(symbol string) (*finance.Quote, error)) Option {
	return func(a *Adapter) { a.quoteFn = fn }
}

// New creates a Yahoo Finance adapter on top of the shared HTTP client.
func New(client *httpx.Client, options ...Option) *Adapter {
	a := &Adapter{
		http:      client,
		chartURL:  chartBaseURL,
		searchURL: searchBaseURL,
		quoteFn:   quote.Get,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return providerName }

func (a *Adapter) Quota() ratelimit.Quota {
	return ratelimit.Quota{Provider: providerName, PerMinute: 30, PerDay: 2000}
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	type result struct {
		q   *finance.Quote
		err error
	}
	// finance-go does not take a context, so the call runs on its own
	// goroutine and the deadline is enforced here.
	ch := make(chan result, 1)
	go func() {
		q, err := a.quoteFn(symbol)
		ch <- result{q: q, err: err}
	}()

	var q *finance.Quote
	select {
	case <-ctx.Done():
		return provider.Quote{}, fmt.Errorf("yahoo quote %s: %w: %v", symbol, provider.ErrUpstreamUnavailable, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			if strings.Contains(strings.ToLower(r.err.Error()), "not found") {
				return provider.Quote{}, fmt.Errorf("yahoo quote %s: %w", symbol, provider.ErrNotFound)
			}
			return provider.Quote{}, fmt.Errorf("yahoo quote %s: %w: %v", symbol, provider.ErrUpstreamUnavailable, r.err)
		}
		q = r.q
	}
	if q == nil || q.Symbol == "" || q.RegularMarketPrice == 0 {
		return provider.Quote{}, fmt.Errorf("yahoo quote %s: %w", symbol, provider.ErrNotFound)
	}

	ts := time.Unix(int64(q.RegularMarketTime), 0).UTC()
	if q.RegularMarketTime == 0 {
		ts = time.Now().UTC()
	}
	return provider.Quote{
		Symbol:        q.Symbol,
		Name:          q.ShortName,
		Price:         q.RegularMarketPrice,
		Change:        q.RegularMarketChange,
		ChangePercent: q.RegularMarketChangePercent,
		Open:          q.RegularMarketOpen,
		High:          q.RegularMarketDayHigh,
		Low:           q.RegularMarketDayLow,
		PrevClose:     q.RegularMarketPreviousClose,
		Volume:        int64(q.RegularMarketVolume),
		Timestamp:     ts,
		Source:        provider.SourceReal,
	}, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (a *Adapter) History(ctx context.Context, symbol string, period provider.Period) (provider.HistorySeries, error) {
	u := fmt.Sprintf("%s/%s?range=%s&interval=%s",
		a.chartURL, url.PathEscape(symbol), period, intervalFor(period))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo history %s: build request: %w", symbol, err)
	}
	resp, err := a.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("yahoo history %s: %w: %v", symbol, provider.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("yahoo history %s: %w", symbol, provider.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("yahoo history %s: %w", symbol, provider.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("yahoo history %s: %w: status %d", symbol, provider.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var cr chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("yahoo history %s: %w: %v", symbol, provider.ErrMalformedResponse, err)
	}
	if cr.Chart.Error != nil {
		if cr.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("yahoo history %s: %w", symbol, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("yahoo history %s: %w: %s", symbol, provider.ErrUpstreamUnavailable, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo history %s: %w", symbol, provider.ErrNotFound)
	}

	result := cr.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo history %s: %w: no quote block", symbol, provider.ErrMalformedResponse)
	}
	bars := result.Indicators.Quote[0]
	series := make(provider.HistorySeries, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(bars.Close) || bars.Close[i] == 0 {
			continue
		}
		p := provider.HistoryPoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     bars.Close[i],
		}
		if i < len(bars.Open) {
			p.Open = bars.Open[i]
		}
		if i < len(bars.High) {
			p.High = bars.High[i]
		}
		if i < len(bars.Low) {
			p.Low = bars.Low[i]
		}
		if i < len(bars.Volume) {
			p.Volume = bars.Volume[i]
		}
		series = append(series, p)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("yahoo history %s: %w: empty series", symbol, provider.ErrMalformedResponse)
	}
	return series.Normalize(), nil
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		ExchDisp  string `json:"exchDisp"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

func (a *Adapter) Search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	u := fmt.Sprintf("%s?q=%s&quotesCount=10&newsCount=0", a.searchURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo search %q: build request: %w", query, err)
	}
	resp, err := a.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("yahoo search %q: %w: %v", query, provider.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("yahoo search %q: %w", query, provider.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo search %q: %w: status %d", query, provider.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("yahoo search %q: %w: %v", query, provider.ErrMalformedResponse, err)
	}

	results := make([]provider.SearchResult, 0, len(sr.Quotes))
	for _, q := range sr.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.ShortName
		if name == "" {
			name = q.LongName
		}
		results = append(results, provider.SearchResult{
			Symbol:   q.Symbol,
			Name:     name,
			Exchange: q.ExchDisp,
			Type:     normalizeType(q.QuoteType),
		})
	}
	return results, nil
}

// intervalFor keeps intraday ranges fine-grained and long ranges weekly so
// payloads stay small.
func intervalFor(p provider.Period) string {
	switch p {
	case provider.Period1D:
		return "5m"
	case provider.Period5D:
		return "30m"
	case provider.Period2Y, provider.Period5Y:
		return "1wk"
	default:
		return "1d"
	}
}

func normalizeType(t string) string {
	switch strings.ToUpper(t) {
	case "ETF":
		return "ETF"
	case "MUTUALFUND":
		return "MUTUAL_FUND"
	default:
		return "STOCK"
	}
}
