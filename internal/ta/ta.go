// Package ta computes technical indicators from a price-history series.
// All math is pure and deterministic for a given series.
package ta

import (
	"errors"
	"math"
	"strconv"

	"stockapi/internal/provider"
)

// ErrInsufficientData is returned by individual indicator helpers when the
// series is shorter than the required window. Compute omits the indicator
// instead of failing the whole set.
var ErrInsufficientData = errors.New("insufficient data for indicator")

// Config holds the indicator windows. Zero values fall back to defaults.
type Config struct {
	SMAWindows      []int
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerWindow int
	BollingerK      float64
}

// DefaultConfig matches the conventional windows: SMA 20/50/200, RSI 14,
// MACD 12/26/9, Bollinger 20 with k=2.
func DefaultConfig() Config {
	return Config{
		SMAWindows:      []int{20, 50, 200},
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerWindow: 20,
		BollingerK:      2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.SMAWindows) == 0 {
		c.SMAWindows = d.SMAWindows
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.MACDFast <= 0 {
		c.MACDFast = d.MACDFast
	}
	if c.MACDSlow <= 0 {
		c.MACDSlow = d.MACDSlow
	}
	if c.MACDSignal <= 0 {
		c.MACDSignal = d.MACDSignal
	}
	if c.BollingerWindow <= 0 {
		c.BollingerWindow = d.BollingerWindow
	}
	if c.BollingerK <= 0 {
		c.BollingerK = d.BollingerK
	}
	return c
}

// MACD is the MACD line, its signal EMA and their difference.
type MACD struct {
	Line      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger is the moving average band: middle ± k*stddev.
type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSet carries the indicators that could be computed for a series.
// Nil / missing entries mean the series was too short for that window.
type IndicatorSet struct {
	Symbol         string             `json:"symbol"`
	Points         int                `json:"points"`
	MovingAverages map[string]float64 `json:"moving_averages,omitempty"`
	RSI            *float64           `json:"rsi,omitempty"`
	MACD           *MACD              `json:"macd,omitempty"`
	Bollinger      *Bollinger         `json:"bollinger_bands,omitempty"`
}

// SMA is the mean of the last window closes.
func SMA(closes []float64, window int) (float64, error) {
	if window <= 0 || len(closes) < window {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window), nil
}

// emaSeries returns the EMA of closes with the given window, one value per
// input from index window-1 on. The first value is seeded with the SMA of
// the first window closes.
func emaSeries(closes []float64, window int) []float64 {
	if window <= 0 || len(closes) < window {
		return nil
	}
	out := make([]float64, 0, len(closes)-window+1)
	seed := 0.0
	for _, c := range closes[:window] {
		seed += c
	}
	ema := seed / float64(window)
	out = append(out, ema)
	mult := 2.0 / float64(window+1)
	for _, c := range closes[window:] {
		ema = (c-ema)*mult + ema
		out = append(out, ema)
	}
	return out
}

// EMA is the exponential moving average of the last close.
func EMA(closes []float64, window int) (float64, error) {
	s := emaSeries(closes, window)
	if s == nil {
		return 0, ErrInsufficientData
	}
	return s[len(s)-1], nil
}

// RSI is the Wilder-smoothed relative strength index over period. A series
// with no price movement yields the neutral 50; all gains clamp at 100 and
// all losses at 0.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, ErrInsufficientData
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgGain == 0 && avgLoss == 0 {
		return 50, nil
	}
	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// ComputeMACD returns the fast/slow EMA difference, its signal EMA and the
// histogram. Needs at least slow+signal-1 closes.
func ComputeMACD(closes []float64, fast, slow, signal int) (MACD, error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return MACD{}, ErrInsufficientData
	}
	if len(closes) < slow+signal-1 {
		return MACD{}, ErrInsufficientData
	}
	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)
	// Align: slowEMA[i] corresponds to fastEMA[i+slow-fast].
	line := make([]float64, len(slowEMA))
	offset := slow - fast
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}
	signalSeries := emaSeries(line, signal)
	if signalSeries == nil {
		return MACD{}, ErrInsufficientData
	}
	m := MACD{
		Line:   line[len(line)-1],
		Signal: signalSeries[len(signalSeries)-1],
	}
	m.Histogram = m.Line - m.Signal
	return m, nil
}

// ComputeBollinger returns middle ± k standard deviations over the window.
// The population standard deviation is used, so a flat window collapses all
// three bands onto the mean.
func ComputeBollinger(closes []float64, window int, k float64) (Bollinger, error) {
	mean, err := SMA(closes, window)
	if err != nil {
		return Bollinger{}, err
	}
	variance := 0.0
	for _, c := range closes[len(closes)-window:] {
		d := c - mean
		variance += d * d
	}
	variance /= float64(window)
	sd := math.Sqrt(variance)
	return Bollinger{Upper: mean + k*sd, Middle: mean, Lower: mean - k*sd}, nil
}

// Compute derives the full indicator set for a series. Indicators whose
// window exceeds the series length are omitted rather than failing the call.
func Compute(symbol string, series provider.HistorySeries, cfg Config) IndicatorSet {
	cfg = cfg.withDefaults()
	closes := series.Closes()
	set := IndicatorSet{Symbol: symbol, Points: len(closes)}

	for _, w := range cfg.SMAWindows {
		if v, err := SMA(closes, w); err == nil {
			if set.MovingAverages == nil {
				set.MovingAverages = make(map[string]float64, len(cfg.SMAWindows))
			}
			set.MovingAverages[smaName(w)] = v
		}
	}
	if v, err := RSI(closes, cfg.RSIPeriod); err == nil {
		set.RSI = &v
	}
	if m, err := ComputeMACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal); err == nil {
		set.MACD = &m
	}
	if b, err := ComputeBollinger(closes, cfg.BollingerWindow, cfg.BollingerK); err == nil {
		set.Bollinger = &b
	}
	return set
}

func smaName(w int) string {
	return "sma_" + strconv.Itoa(w)
}
