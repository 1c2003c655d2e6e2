package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"stockapi/internal/analysis"
	"stockapi/internal/cache"
	"stockapi/internal/catalog"
	"stockapi/internal/provider"
	"stockapi/internal/ratelimit"
	"stockapi/internal/synth"
	"stockapi/internal/ta"
)

var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidQuery  = errors.New("invalid query")
)

// TTLConfig holds the freshness window per data kind.
type TTLConfig struct {
	Quote      time.Duration
	History    time.Duration
	Search     time.Duration
	Indicators time.Duration
	Analysis   time.Duration
}

// DefaultTTLs returns the standard freshness windows.
func DefaultTTLs() TTLConfig {
	return TTLConfig{
		Quote:      time.Minute,
		History:    time.Hour,
		Search:     24 * time.Hour,
		Indicators: 5 * time.Minute,
		Analysis:   5 * time.Minute,
	}
}

// History is a resolved price history response.
type History struct {
	Symbol string                 `json:"symbol"`
	Period provider.Period        `json:"period"`
	Points provider.HistorySeries `json:"points"`
	Source string                 `json:"source"`
}

// SearchResponse is a resolved symbol search.
type SearchResponse struct {
	Query   string                  `json:"query"`
	Results []provider.SearchResult `json:"results"`
	Source  string                  `json:"source"`
}

// IndicatorResponse wraps an indicator set with the origin of the series it
// was computed from.
type IndicatorResponse struct {
	ta.IndicatorSet
	Source string `json:"source"`
}

// Config wires a Service together. Zero-valued fields get defaults.
type Config struct {
	Providers       []provider.Provider
	Cache           *cache.Store
	Limiter         *ratelimit.Limiter
	Synth           *synth.Generator
	Index           *catalog.Index
	Logger          *logrus.Logger
	TTL             TTLConfig
	ProviderTimeout time.Duration
	Indicators      ta.Config
}

// Service resolves all market data requests. Within a request it walks the
// configured providers in priority order, skipping any whose quota budget is
// spent, and falls back to generated data so valid symbols always resolve.
type Service struct {
	providers []provider.Provider
	cache     *cache.Store
	limiter   *ratelimit.Limiter
	synth     *synth.Generator
	index     *catalog.Index
	log       *logrus.Logger
	ttl       TTLConfig
	timeout   time.Duration
	taCfg     ta.Config
	started   time.Time
	sf        singleflight.Group
	status    *statusBoard
}

// New builds a Service and registers every provider's quota with the limiter.
func New(cfg Config) *Service {
	s := &Service{
		providers: cfg.Providers,
		cache:     cfg.Cache,
		limiter:   cfg.Limiter,
		synth:     cfg.Synth,
		index:     cfg.Index,
		log:       cfg.Logger,
		ttl:       cfg.TTL,
		timeout:   cfg.ProviderTimeout,
		taCfg:     cfg.Indicators,
		started:   time.Now().UTC(),
		status:    newStatusBoard(),
	}
	if s.cache == nil {
		s.cache = cache.New()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter()
	}
	if s.synth == nil {
		s.synth = synth.New(0)
	}
	if s.log == nil {
		s.log = logrus.New()
	}
	if s.ttl == (TTLConfig{}) {
		s.ttl = DefaultTTLs()
	}
	if s.timeout <= 0 {
		s.timeout = 8 * time.Second
	}
	for _, p := range s.providers {
		s.limiter.Register(p.Quota())
		s.status.track(p.Name())
	}
	return s
}

// Quote resolves the current quote for symbol. Cached data wins; otherwise
// providers are tried in order and a generated quote is the terminal
// fallback, so the only error for a well-formed symbol is a canceled context.
func (s *Service) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	sym := provider.NormalizeSymbol(symbol)
	if !provider.ValidSymbol(sym) {
		return provider.Quote{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}

	key := cache.Key(sym, "quote")
	if v, ok := s.cache.Get(key); ok {
		q := v.(provider.Quote)
		q.Source = serveTag(q.Source)
		return q, nil
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.fetchQuote(ctx, sym, key)
	})
	if err != nil {
		return provider.Quote{}, err
	}
	return v.(provider.Quote), nil
}

func (s *Service) fetchQuote(ctx context.Context, sym, key string) (provider.Quote, error) {
	if err := ctx.Err(); err != nil {
		return provider.Quote{}, fmt.Errorf("resolve quote %s: %w", sym, err)
	}
	for _, p := range s.providers {
		name := p.Name()
		if !s.limiter.TryAcquire(name) {
			s.log.WithFields(logrus.Fields{"provider": name, "symbol": sym}).Debug("quota spent, skipping provider")
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		q, err := p.Quote(cctx, sym)
		cancel()
		if err != nil {
			s.status.fail(name, err)
			s.log.WithError(err).WithFields(logrus.Fields{"provider": name, "symbol": sym}).Warn("quote fetch failed")
			continue
		}
		s.status.ok(name)
		s.cache.Put(key, q, s.ttl.Quote)
		return q, nil
	}

	if err := ctx.Err(); err != nil {
		return provider.Quote{}, fmt.Errorf("resolve quote %s: %w", sym, err)
	}
	q := s.synth.Quote(sym, time.Now().UTC())
	s.cache.Put(key, q, s.ttl.Quote)
	return q, nil
}

// History resolves OHLCV bars for symbol over period.
func (s *Service) History(ctx context.Context, symbol string, period provider.Period) (History, error) {
	sym := provider.NormalizeSymbol(symbol)
	if !provider.ValidSymbol(sym) {
		return History{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}

	key := cache.Key(sym, "history", string(period))
	if v, ok := s.cache.Get(key); ok {
		h := v.(History)
		h.Source = serveTag(h.Source)
		return h, nil
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.fetchHistory(ctx, sym, period, key)
	})
	if err != nil {
		return History{}, err
	}
	return v.(History), nil
}

func (s *Service) fetchHistory(ctx context.Context, sym string, period provider.Period, key string) (History, error) {
	if err := ctx.Err(); err != nil {
		return History{}, fmt.Errorf("resolve history %s: %w", sym, err)
	}
	for _, p := range s.providers {
		name := p.Name()
		if !s.limiter.TryAcquire(name) {
			s.log.WithFields(logrus.Fields{"provider": name, "symbol": sym}).Debug("quota spent, skipping provider")
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		series, err := p.History(cctx, sym, period)
		cancel()
		if err != nil {
			s.status.fail(name, err)
			s.log.WithError(err).WithFields(logrus.Fields{"provider": name, "symbol": sym, "period": period}).Warn("history fetch failed")
			continue
		}
		s.status.ok(name)
		h := History{Symbol: sym, Period: period, Points: series.Normalize(), Source: provider.SourceReal}
		s.cache.Put(key, h, s.ttl.History)
		return h, nil
	}

	if err := ctx.Err(); err != nil {
		return History{}, fmt.Errorf("resolve history %s: %w", sym, err)
	}
	h := History{
		Symbol: sym,
		Period: period,
		Points: s.synth.History(sym, period, time.Now().UTC()),
		Source: provider.SourceSynthetic,
	}
	s.cache.Put(key, h, s.ttl.History)
	return h, nil
}

// Search resolves a free-text symbol or company name query. Providers are
// consulted first; the local catalog index and generated matches cover the
// offline path.
func (s *Service) Search(ctx context.Context, query string) (SearchResponse, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return SearchResponse{}, ErrInvalidQuery
	}

	key := cache.Key("", "search", strings.ToLower(q))
	if v, ok := s.cache.Get(key); ok {
		resp := v.(SearchResponse)
		resp.Source = serveTag(resp.Source)
		return resp, nil
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.fetchSearch(ctx, q, key)
	})
	if err != nil {
		return SearchResponse{}, err
	}
	return v.(SearchResponse), nil
}

func (s *Service) fetchSearch(ctx context.Context, q, key string) (SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return SearchResponse{}, fmt.Errorf("resolve search %q: %w", q, err)
	}
	for _, p := range s.providers {
		name := p.Name()
		if !s.limiter.TryAcquire(name) {
			s.log.WithFields(logrus.Fields{"provider": name, "query": q}).Debug("quota spent, skipping provider")
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		results, err := p.Search(cctx, q)
		cancel()
		if err != nil {
			s.status.fail(name, err)
			s.log.WithError(err).WithFields(logrus.Fields{"provider": name, "query": q}).Warn("search failed")
			continue
		}
		s.status.ok(name)
		if len(results) == 0 {
			continue
		}
		resp := SearchResponse{Query: q, Results: results, Source: provider.SourceReal}
		s.cache.Put(key, resp, s.ttl.Search)
		return resp, nil
	}

	if err := ctx.Err(); err != nil {
		return SearchResponse{}, fmt.Errorf("resolve search %q: %w", q, err)
	}
	var results []provider.SearchResult
	if s.index != nil {
		results = s.index.Search(q, 10)
	}
	if len(results) == 0 {
		results = s.synth.Search(q, 10)
	}
	resp := SearchResponse{Query: q, Results: results, Source: provider.SourceSynthetic}
	s.cache.Put(key, resp, s.ttl.Search)
	return resp, nil
}

// Indicators computes the technical indicator set for symbol from its daily
// history. Indicators whose window exceeds the available data are omitted
// rather than failing the call.
func (s *Service) Indicators(ctx context.Context, symbol string) (IndicatorResponse, error) {
	sym := provider.NormalizeSymbol(symbol)
	if !provider.ValidSymbol(sym) {
		return IndicatorResponse{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}

	key := cache.Key(sym, "indicators")
	if v, ok := s.cache.Get(key); ok {
		resp := v.(IndicatorResponse)
		resp.Source = serveTag(resp.Source)
		return resp, nil
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		h, err := s.History(ctx, sym, provider.Period1Y)
		if err != nil {
			return IndicatorResponse{}, err
		}
		resp := IndicatorResponse{
			IndicatorSet: ta.Compute(sym, h.Points, s.taCfg),
			Source:       sourceOf(h.Source),
		}
		s.cache.Put(key, resp, s.ttl.Indicators)
		return resp, nil
	})
	if err != nil {
		return IndicatorResponse{}, err
	}
	return v.(IndicatorResponse), nil
}

// Analysis combines the live quote and the indicator set into a scored
// recommendation.
func (s *Service) Analysis(ctx context.Context, symbol string) (analysis.Result, error) {
	sym := provider.NormalizeSymbol(symbol)
	if !provider.ValidSymbol(sym) {
		return analysis.Result{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}

	key := cache.Key(sym, "analysis")
	if v, ok := s.cache.Get(key); ok {
		res := v.(analysis.Result)
		res.Source = serveTag(res.Source)
		return res, nil
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		q, err := s.Quote(ctx, sym)
		if err != nil {
			return analysis.Result{}, err
		}
		ind, err := s.Indicators(ctx, sym)
		if err != nil {
			return analysis.Result{}, err
		}
		rng := s.synth.Rand(sym, time.Now().UTC())
		res := analysis.Analyze(sym, q, ind.IndicatorSet, sourceOf(q.Source), rng)
		s.cache.Put(key, res, s.ttl.Analysis)
		return res, nil
	})
	if err != nil {
		return analysis.Result{}, err
	}
	return v.(analysis.Result), nil
}

// serveTag picks the tag for a cached value. Generated data keeps its
// synthetic mark on re-reads so consumers never mistake it for real data;
// everything else is reported as a cache hit.
func serveTag(origin string) string {
	if origin == provider.SourceSynthetic {
		return provider.SourceSynthetic
	}
	return provider.SourceCache
}

// sourceOf collapses the cache tag back onto the data's origin class for
// derived values.
func sourceOf(src string) string {
	if src == provider.SourceSynthetic {
		return provider.SourceSynthetic
	}
	return provider.SourceReal
}
