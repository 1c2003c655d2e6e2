package market_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"stockapi/internal/market"
	"stockapi/internal/provider"
	"stockapi/internal/ratelimit"
)

type fakeProvider struct {
	name        string
	quota       ratelimit.Quota
	quoteCalls  int
	histCalls   int
	searchCalls int
	err         error
	quote       provider.Quote
	history     provider.HistorySeries
	results     []provider.SearchResult
}

func (f *fakeProvider) Name() string           { return f.name }
func (f *fakeProvider) Quota() ratelimit.Quota { return f.quota }

func (f *fakeProvider) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	f.quoteCalls++
	if err := ctx.Err(); err != nil {
		return provider.Quote{}, err
	}
	if f.err != nil {
		return provider.Quote{}, f.err
	}
	q := f.quote
	q.Symbol = symbol
	return q, nil
}

func (f *fakeProvider) History(ctx context.Context, symbol string, period provider.Period) (provider.HistorySeries, error) {
	f.histCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	f.searchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newService(t *testing.T, providers ...provider.Provider) *market.Service {
	t.Helper()
	return market.New(market.Config{
		Providers: providers,
		Logger:    quietLogger(),
	})
}

func bars(n int, start float64) provider.HistorySeries {
	series := make(provider.HistorySeries, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range series {
		px := start + float64(i)
		series[i] = provider.HistoryPoint{
			Timestamp: base.AddDate(0, 0, i),
			Open:      px - 0.5,
			High:      px + 1,
			Low:       px - 1,
			Close:     px,
			Volume:    1000,
		}
	}
	return series
}

func TestQuote_FromProvider(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		quote: provider.Quote{Price: 193.25, Source: provider.SourceReal},
	}
	svc := newService(t, p)

	q, err := svc.Quote(t.Context(), "aapl")
	require.NoError(t, err)
	require.Equal(t, "AAPL", q.Symbol)
	require.Equal(t, provider.SourceReal, q.Source)
	require.Equal(t, 1, p.quoteCalls)
}

func TestQuote_SecondCallServedFromCache(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		quote: provider.Quote{Price: 193.25, Source: provider.SourceReal},
	}
	svc := newService(t, p)

	_, err := svc.Quote(t.Context(), "AAPL")
	require.NoError(t, err)

	q, err := svc.Quote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceCache, q.Source)
	require.Equal(t, 1, p.quoteCalls, "cache hit must not touch providers")
}

func TestQuote_FallsBackToSecondaryOnFailure(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		err:   provider.ErrUpstreamUnavailable,
	}
	secondary := &fakeProvider{
		name:  "secondary",
		quota: ratelimit.Quota{Provider: "secondary", PerMinute: 100, PerDay: 1000},
		quote: provider.Quote{Price: 42, Source: provider.SourceReal},
	}
	svc := newService(t, primary, secondary)

	q, err := svc.Quote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceReal, q.Source)
	require.InEpsilon(t, 42.0, q.Price, 0.0001)
	require.Equal(t, 1, primary.quoteCalls)
	require.Equal(t, 1, secondary.quoteCalls)
}

func TestQuote_QuotaExhaustionSkipsProvider(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 1, PerDay: 1000},
		quote: provider.Quote{Price: 1, Source: provider.SourceReal},
	}
	secondary := &fakeProvider{
		name:  "secondary",
		quota: ratelimit.Quota{Provider: "secondary", PerMinute: 100, PerDay: 1000},
		quote: provider.Quote{Price: 2, Source: provider.SourceReal},
	}
	svc := newService(t, primary, secondary)

	_, err := svc.Quote(t.Context(), "AAPL")
	require.NoError(t, err)

	// Different symbol, so the cache does not short-circuit.
	q, err := svc.Quote(t.Context(), "MSFT")
	require.NoError(t, err)
	require.InEpsilon(t, 2.0, q.Price, 0.0001)
	require.Equal(t, 1, primary.quoteCalls, "primary is over budget and must be skipped")
	require.Equal(t, 1, secondary.quoteCalls)
}

func TestQuote_SyntheticWhenAllProvidersFail(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		err:   provider.ErrUpstreamUnavailable,
	}
	svc := newService(t, p)

	q, err := svc.Quote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceSynthetic, q.Source)
	require.Equal(t, "AAPL", q.Symbol)
	require.Positive(t, q.Price)
}

func TestQuote_NoProvidersStillResolves(t *testing.T) {
	t.Parallel()

	svc := newService(t)

	q, err := svc.Quote(t.Context(), "NVDA")
	require.NoError(t, err)
	require.Equal(t, provider.SourceSynthetic, q.Source)
	require.Positive(t, q.Price)
}

func TestQuote_InvalidSymbol(t *testing.T) {
	t.Parallel()

	svc := newService(t)

	_, err := svc.Quote(t.Context(), "not a ticker!!")
	require.ErrorIs(t, err, market.ErrInvalidSymbol)

	_, err = svc.Quote(t.Context(), "")
	require.ErrorIs(t, err, market.ErrInvalidSymbol)
}

func TestHistory_FromProvider(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:    "primary",
		quota:   ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		history: bars(30, 100),
	}
	svc := newService(t, p)

	h, err := svc.History(t.Context(), "AAPL", provider.Period1M)
	require.NoError(t, err)
	require.Equal(t, provider.SourceReal, h.Source)
	require.Len(t, h.Points, 30)
	require.True(t, h.Points[0].Timestamp.Before(h.Points[1].Timestamp))

	h2, err := svc.History(t.Context(), "AAPL", provider.Period1M)
	require.NoError(t, err)
	require.Equal(t, provider.SourceCache, h2.Source)
	require.Equal(t, 1, p.histCalls)
}

func TestHistory_SyntheticFallback(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		err:   provider.ErrRateLimited,
	}
	svc := newService(t, p)

	h, err := svc.History(t.Context(), "AAPL", provider.Period1M)
	require.NoError(t, err)
	require.Equal(t, provider.SourceSynthetic, h.Source)
	require.NotEmpty(t, h.Points)
}

func TestSyntheticTagSurvivesCache(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		err:   provider.ErrUpstreamUnavailable,
	}
	svc := newService(t, p)

	h, err := svc.History(t.Context(), "AAPL", provider.Period1Y)
	require.NoError(t, err)
	require.Equal(t, provider.SourceSynthetic, h.Source)

	// Re-reads of generated data stay marked synthetic, not cache.
	h2, err := svc.History(t.Context(), "AAPL", provider.Period1Y)
	require.NoError(t, err)
	require.Equal(t, provider.SourceSynthetic, h2.Source)

	// Values derived from the cached series inherit the synthetic origin.
	resp, err := svc.Indicators(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceSynthetic, resp.Source)

	res, err := svc.Analysis(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceSynthetic, res.Source)
}

func TestHistory_CanceledContextDoesNotCacheFallback(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:    "primary",
		quota:   ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		history: bars(30, 100),
	}
	svc := newService(t, p)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := svc.History(ctx, "AAPL", provider.Period1M)
	require.ErrorIs(t, err, context.Canceled)

	// The dead request must not have pinned a generated series; a live
	// caller still gets provider data.
	h, err := svc.History(t.Context(), "AAPL", provider.Period1M)
	require.NoError(t, err)
	require.Equal(t, provider.SourceReal, h.Source)
}

func TestQuote_CanceledContextDoesNotCacheFallback(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		quote: provider.Quote{Price: 42, Source: provider.SourceReal},
	}
	svc := newService(t, p)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := svc.Quote(ctx, "AAPL")
	require.ErrorIs(t, err, context.Canceled)

	q, err := svc.Quote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceReal, q.Source)
}

func TestHistory_PeriodsCachedIndependently(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:    "primary",
		quota:   ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		history: bars(30, 100),
	}
	svc := newService(t, p)

	_, err := svc.History(t.Context(), "AAPL", provider.Period1M)
	require.NoError(t, err)
	_, err = svc.History(t.Context(), "AAPL", provider.Period6M)
	require.NoError(t, err)
	require.Equal(t, 2, p.histCalls)
}

func TestSearch_FromProvider(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:    "primary",
		quota:   ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		results: []provider.SearchResult{{Symbol: "AAPL", Name: "Apple Inc.", Type: "STOCK"}},
	}
	svc := newService(t, p)

	resp, err := svc.Search(t.Context(), "apple")
	require.NoError(t, err)
	require.Equal(t, provider.SourceReal, resp.Source)
	require.Len(t, resp.Results, 1)

	resp2, err := svc.Search(t.Context(), "apple")
	require.NoError(t, err)
	require.Equal(t, provider.SourceCache, resp2.Source)
	require.Equal(t, 1, p.searchCalls)
}

func TestSearch_LocalFallbackWhenProviderFails(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		err:   provider.ErrUpstreamUnavailable,
	}
	svc := newService(t, p)

	resp, err := svc.Search(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceSynthetic, resp.Source)
	require.NotEmpty(t, resp.Results)
}

func TestSearch_EmptyQuery(t *testing.T) {
	t.Parallel()

	svc := newService(t)

	_, err := svc.Search(t.Context(), "   ")
	require.ErrorIs(t, err, market.ErrInvalidQuery)
}

func TestIndicators_ComputedFromHistory(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:    "primary",
		quota:   ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		history: bars(250, 100),
	}
	svc := newService(t, p)

	resp, err := svc.Indicators(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceReal, resp.Source)
	require.Equal(t, 250, resp.Points)
	require.Contains(t, resp.MovingAverages, "sma_200")
	require.NotNil(t, resp.RSI)
	require.NotNil(t, resp.MACD)
	require.NotNil(t, resp.Bollinger)

	resp2, err := svc.Indicators(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceCache, resp2.Source)
	require.Equal(t, 1, p.histCalls)
}

func TestIndicators_ShortHistoryOmitsInsteadOfFailing(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:    "primary",
		quota:   ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		history: bars(5, 100),
	}
	svc := newService(t, p)

	resp, err := svc.Indicators(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Empty(t, resp.MovingAverages)
	require.Nil(t, resp.RSI)
}

func TestAnalysis_ComposesQuoteAndIndicators(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:    "primary",
		quota:   ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		quote:   provider.Quote{Price: 349, Source: provider.SourceReal},
		history: bars(250, 100),
	}
	svc := newService(t, p)

	res, err := svc.Analysis(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "AAPL", res.Symbol)
	require.GreaterOrEqual(t, res.Score, 0.0)
	require.LessOrEqual(t, res.Score, 100.0)
	require.NotEmpty(t, res.Category)
	require.NotEmpty(t, res.Reasoning)
	require.Equal(t, provider.SourceReal, res.Source)

	res2, err := svc.Analysis(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.SourceCache, res2.Source)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:  "primary",
		quota: ratelimit.Quota{Provider: "primary", PerMinute: 100, PerDay: 1000},
		err:   errors.New("boom"),
	}
	svc := newService(t, p)

	h := svc.Health()
	require.Equal(t, "ok", h.Status)
	require.Len(t, h.Providers, 1)
	require.True(t, h.Providers[0].Healthy)

	// Distinct symbols so the cache does not absorb the calls.
	for _, sym := range []string{"AAPL", "MSFT", "NVDA"} {
		_, err := svc.Quote(t.Context(), sym)
		require.NoError(t, err)
	}

	h = svc.Health()
	require.False(t, h.Providers[0].Healthy)
	require.Equal(t, int64(3), h.Providers[0].Failures)
	require.NotNil(t, h.Providers[0].LastError)
	require.Equal(t, "boom", h.Providers[0].LastErrorMsg)
	require.Positive(t, h.CacheEntries)
}
