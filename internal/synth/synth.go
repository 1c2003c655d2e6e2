// Package synth generates plausible stand-in market data for symbols no
// provider could serve. Output is deterministic for a given symbol within
// one cache epoch: the RNG is seeded from the symbol string and the epoch
// index, never from ambient random state or the wall clock directly.
package synth

import (
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"stockapi/internal/catalog"
	"stockapi/internal/provider"
)

// SourceTag marks synthetic records so callers can tell them from real data.
const SourceTag = provider.SourceSynthetic

// Generator produces synthetic quotes and history series.
type Generator struct {
	epoch time.Duration
}

// New returns a generator whose output is stable for windows of the given
// epoch length. An epoch of zero means one minute.
func New(epoch time.Duration) *Generator {
	if epoch <= 0 {
		epoch = time.Minute
	}
	return &Generator{epoch: epoch}
}

// Epoch reports the stability window length.
func (g *Generator) Epoch() time.Duration { return g.epoch }

// Rand returns the symbol's RNG for the epoch containing now. Two calls in
// the same epoch see the same stream; different symbols diverge.
func (g *Generator) Rand(symbol string, now time.Time) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(provider.NormalizeSymbol(symbol)))
	seed := h.Sum64() ^ uint64(now.Unix()/int64(g.epoch.Seconds()))
	return rand.New(rand.NewSource(int64(seed)))
}

// DetectType classifies a ticker as ETF, mutual fund or common stock using
// naming heuristics (sector ETFs start with X/Y, ARK and iShares families,
// five-letter fund tickers containing X).
func DetectType(symbol string) string {
	s := provider.NormalizeSymbol(symbol)
	if e, ok := catalog.Lookup(s); ok && e.Type != "" {
		return e.Type
	}
	switch {
	case len(s) == 3 && (s[0] == 'X' || s[0] == 'Y'),
		strings.HasPrefix(s, "ARK"),
		strings.HasPrefix(s, "I") && len(s) <= 4:
		return catalog.TypeETF
	case len(s) == 5 && strings.Contains(s, "X"),
		strings.HasSuffix(s, "X") && len(s) >= 4:
		return catalog.TypeMutualFund
	}
	return catalog.TypeStock
}

// priceProfile is the generation range for one instrument class.
type priceProfile struct {
	minPrice, maxPrice   float64
	maxChangePct         float64
	minVolume, maxVolume int64
	nameSuffix           string
}

func profileFor(symbol, kind string) priceProfile {
	switch kind {
	case catalog.TypeETF:
		return priceProfile{50, 500, 2, 5_000_000, 50_000_000, "ETF"}
	case catalog.TypeMutualFund:
		return priceProfile{10, 100, 1, 100_000, 1_000_000, "Fund"}
	}
	// Individual stocks: volatility by sector hints in the ticker.
	switch {
	case containsAny(symbol, "NV", "AI", "SEMI", "CHIP"):
		return priceProfile{50, 300, 5, 100_000, 10_000_000, "Corporation"}
	case containsAny(symbol, "COIN", "BTC", "CRYPTO"):
		return priceProfile{100, 500, 10, 100_000, 10_000_000, "Corporation"}
	case containsAny(symbol, "BIO", "GENE", "MRNA"):
		return priceProfile{10, 150, 8, 100_000, 10_000_000, "Corporation"}
	}
	return priceProfile{20, 200, 3, 100_000, 10_000_000, "Corporation"}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Quote fabricates a quote for symbol. Builtin symbols keep their reference
// price and day change; unknown symbols get a price drawn from their
// instrument class profile.
func (g *Generator) Quote(symbol string, now time.Time) provider.Quote {
	sym := provider.NormalizeSymbol(symbol)
	rng := g.Rand(sym, now)
	kind := DetectType(sym)
	prof := profileFor(sym, kind)

	var price, change float64
	name := sym + " " + prof.nameSuffix
	if e, ok := catalog.Lookup(sym); ok {
		name = e.Name
		if e.BasePrice > 0 {
			price = e.BasePrice
			change = e.BaseChange
		}
	}
	if price == 0 {
		price = prof.minPrice + rng.Float64()*(prof.maxPrice-prof.minPrice)
		changePct := (rng.Float64()*2 - 1) * prof.maxChangePct
		change = price * changePct / 100
	}
	changePct := 0.0
	if price != 0 {
		changePct = change / price * 100
	}

	var high, low, open float64
	if change >= 0 {
		high = price + rng.Float64()*change*0.4
		low = price - change - rng.Float64()*change*0.3
		open = price - change*(0.5+rng.Float64()*0.5)
	} else {
		high = price - change*(0.3+rng.Float64()*0.3)
		low = price + change*0.2*rng.Float64()
		open = price - change*rng.Float64()*0.5
	}

	return provider.Quote{
		Symbol:        sym,
		Name:          name,
		Price:         round2(price),
		Change:        round2(change),
		ChangePercent: round2(changePct),
		Open:          round2(open),
		High:          round2(high),
		Low:           round2(low),
		PrevClose:     round2(price - change),
		Volume:        prof.minVolume + rng.Int63n(prof.maxVolume-prof.minVolume),
		Timestamp:     now.UTC(),
		Source:        SourceTag,
	}
}

// History fabricates a daily OHLCV series for the period, a noisy walk that
// trends into the symbol's synthetic quote price on the final bar.
func (g *Generator) History(symbol string, period provider.Period, now time.Time) provider.HistorySeries {
	sym := provider.NormalizeSymbol(symbol)
	q := g.Quote(sym, now)
	rng := g.Rand(sym+"|history|"+string(period), now)

	days := period.Days()
	start := now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days)
	base := q.Price * (0.9 + rng.Float64()*0.2)

	series := make(provider.HistorySeries, 0, days+1)
	for i := 0; i <= days; i++ {
		var c float64
		if i == days {
			c = q.Price
		} else {
			progress := float64(i) / float64(days)
			trend := (q.Price - base) * progress
			noise := (rng.Float64()*2 - 1) * 0.03 * base
			c = base + trend + noise
		}
		if c <= 0 {
			c = base * 0.01
		}
		o := c * (1 + (rng.Float64()*2-1)*0.01)
		h := maxf(o, c) * (1 + rng.Float64()*0.01)
		l := minf(o, c) * (1 - rng.Float64()*0.01)
		series = append(series, provider.HistoryPoint{
			Timestamp: start.AddDate(0, 0, i),
			Open:      round2(o),
			High:      round2(h),
			Low:       round2(l),
			Close:     round2(c),
			Volume:    1_000_000 + rng.Int63n(49_000_000),
		})
	}
	return series
}

// Search matches the builtin catalog by substring and, when the query itself
// looks like a ticker we do not know, echoes it back as a plausible match.
func (g *Generator) Search(query string, limit int) []provider.SearchResult {
	q := provider.NormalizeSymbol(query)
	if q == "" || limit <= 0 {
		return nil
	}
	var out []provider.SearchResult
	for _, e := range catalog.Builtin() {
		if strings.Contains(e.Symbol, q) || strings.Contains(strings.ToUpper(e.Name), q) {
			out = append(out, provider.SearchResult{Symbol: e.Symbol, Name: e.Name, Exchange: e.Exchange, Type: e.Type})
			if len(out) >= limit {
				return out
			}
		}
	}
	if provider.ValidSymbol(q) && len(q) >= 2 && len(q) <= 5 {
		for _, r := range out {
			if r.Symbol == q {
				return out
			}
		}
		kind := DetectType(q)
		out = append(out, provider.SearchResult{
			Symbol:   q,
			Name:     q + " " + profileFor(q, kind).nameSuffix,
			Exchange: "NASDAQ",
			Type:     kind,
		})
	}
	return out
}

func round2(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
