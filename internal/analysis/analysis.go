// Package analysis folds indicator signals and recent price action into a
// bounded investment score with a categorical recommendation.
package analysis

import (
	"fmt"
	"math/rand"

	"stockapi/internal/provider"
	"stockapi/internal/ta"
)

// Categories in descending order of bullishness. Thresholds are fixed:
// 80/60/40/20 on the 0-100 score.
const (
	StrongBuy  = "strong_buy"
	Buy        = "buy"
	Hold       = "hold"
	Sell       = "sell"
	StrongSell = "strong_sell"
)

// Result is the synthesized view for one symbol. Source is "real", "cache"
// or "synthetic" so callers can tell fallback output from genuine data.
type Result struct {
	Symbol        string          `json:"symbol"`
	Score         float64         `json:"score"`
	Category      string          `json:"recommendation"`
	Confidence    float64         `json:"confidence"`
	CurrentPrice  float64         `json:"current_price"`
	ChangePercent float64         `json:"change_percent"`
	TargetPrice   float64         `json:"target_price"`
	StopLoss      float64         `json:"stop_loss"`
	Reasoning     []string        `json:"reasoning"`
	Indicators    ta.IndicatorSet `json:"indicators"`
	Source        string          `json:"source"`
}

// Analyze scores the symbol from its quote and indicator set. The rng drives
// only presentational jitter (confidence, target, stop); callers pass a
// symbol-seeded source so synthetic results stay reproducible per epoch.
func Analyze(symbol string, quote provider.Quote, set ta.IndicatorSet, source string, rng *rand.Rand) Result {
	score := 50.0
	var reasoning []string

	if set.RSI != nil {
		rsi := *set.RSI
		switch {
		case rsi < 30:
			score += 15
			reasoning = append(reasoning, fmt.Sprintf("RSI %.1f oversold", rsi))
		case rsi > 70:
			score -= 15
			reasoning = append(reasoning, fmt.Sprintf("RSI %.1f overbought", rsi))
		case rsi > 55:
			score += 5
			reasoning = append(reasoning, fmt.Sprintf("RSI %.1f shows bullish momentum", rsi))
		default:
			reasoning = append(reasoning, fmt.Sprintf("RSI %.1f neutral", rsi))
		}
	}

	if set.MACD != nil {
		m := set.MACD
		if m.Line > m.Signal {
			score += 5
			if m.Histogram > 0 {
				score += 5
				reasoning = append(reasoning, "MACD above signal with positive histogram")
			} else {
				reasoning = append(reasoning, "MACD crossing above signal")
			}
		} else if m.Line < m.Signal {
			score -= 5
			if m.Histogram < 0 {
				score -= 5
				reasoning = append(reasoning, "MACD below signal with negative histogram")
			} else {
				reasoning = append(reasoning, "MACD crossing below signal")
			}
		}
	}

	if set.Bollinger != nil && quote.Price > 0 {
		b := set.Bollinger
		switch {
		case quote.Price >= b.Upper*0.98:
			score -= 10
			reasoning = append(reasoning, "price at upper Bollinger band")
		case quote.Price <= b.Lower*1.02:
			score += 10
			reasoning = append(reasoning, "price at lower Bollinger band")
		default:
			reasoning = append(reasoning, "price inside Bollinger bands")
		}
	}

	switch {
	case quote.ChangePercent > 2:
		score += 5
		reasoning = append(reasoning, fmt.Sprintf("strong day move +%.2f%%", quote.ChangePercent))
	case quote.ChangePercent < -2:
		score -= 5
		reasoning = append(reasoning, fmt.Sprintf("strong day move %.2f%%", quote.ChangePercent))
	}

	score = clamp(score, 0, 100)
	category := categorize(score)

	confidence := 0.5 + (abs(score-50) / 125)
	confidence += (rng.Float64() - 0.5) * 0.05
	confidence = clamp(confidence, 0.4, 0.9)

	target, stop := priceTargets(quote.Price, category, confidence, rng)

	return Result{
		Symbol:        provider.NormalizeSymbol(symbol),
		Score:         round2(score),
		Category:      category,
		Confidence:    round2(confidence),
		CurrentPrice:  quote.Price,
		ChangePercent: quote.ChangePercent,
		TargetPrice:   round2(target),
		StopLoss:      round2(stop),
		Reasoning:     reasoning,
		Indicators:    set,
		Source:        source,
	}
}

func categorize(score float64) string {
	switch {
	case score >= 80:
		return StrongBuy
	case score >= 60:
		return Buy
	case score >= 40:
		return Hold
	case score >= 20:
		return Sell
	}
	return StrongSell
}

func priceTargets(price float64, category string, confidence float64, rng *rand.Rand) (target, stop float64) {
	if price <= 0 {
		return 0, 0
	}
	scale := confidence / 0.7
	switch category {
	case StrongBuy, Buy:
		up := (0.05 + rng.Float64()*0.10) * scale
		return price * (1 + up), price * (0.90 + rng.Float64()*0.05)
	case Sell, StrongSell:
		down := (0.05 + rng.Float64()*0.07) * scale
		return price * (1 - down), price * (1.05 + rng.Float64()*0.05)
	}
	return price * (1.02 + rng.Float64()*0.06), price * (0.92 + rng.Float64()*0.04)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func round2(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
