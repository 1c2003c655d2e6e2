package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Server struct {
	Port              string `json:"port" envconfig:"PORT"`
	RequestTimeoutSec int    `json:"request_timeout_sec" envconfig:"REQUEST_TIMEOUT_SEC"`
}

type AlphaVantage struct {
	Enabled              bool   `json:"enabled" envconfig:"ALPHAVANTAGE_ENABLED"`
	APIKey               string `json:"api_key" envconfig:"ALPHAVANTAGE_API_KEY"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute" envconfig:"ALPHAVANTAGE_MAX_RPM"`
	MaxRequestsPerDay    int    `json:"max_requests_per_day" envconfig:"ALPHAVANTAGE_MAX_RPD"`
}

type Yahoo struct {
	Enabled              bool `json:"enabled" envconfig:"YAHOO_ENABLED"`
	MaxRequestsPerMinute int  `json:"max_requests_per_minute" envconfig:"YAHOO_MAX_RPM"`
	MaxRequestsPerDay    int  `json:"max_requests_per_day" envconfig:"YAHOO_MAX_RPD"`
}

// CacheTTL sets the freshness window per data kind, in seconds.
type CacheTTL struct {
	QuoteSec      int `json:"quote_sec" envconfig:"CACHE_QUOTE_TTL_SEC"`
	HistorySec    int `json:"history_sec" envconfig:"CACHE_HISTORY_TTL_SEC"`
	SearchSec     int `json:"search_sec" envconfig:"CACHE_SEARCH_TTL_SEC"`
	IndicatorsSec int `json:"indicators_sec" envconfig:"CACHE_INDICATORS_TTL_SEC"`
	AnalysisSec   int `json:"analysis_sec" envconfig:"CACHE_ANALYSIS_TTL_SEC"`
}

type Indicators struct {
	SMAWindows      []int   `json:"sma_windows" envconfig:"SMA_WINDOWS"`
	RSIPeriod       int     `json:"rsi_period" envconfig:"RSI_PERIOD"`
	MACDFast        int     `json:"macd_fast" envconfig:"MACD_FAST"`
	MACDSlow        int     `json:"macd_slow" envconfig:"MACD_SLOW"`
	MACDSignal      int     `json:"macd_signal" envconfig:"MACD_SIGNAL"`
	BollingerWindow int     `json:"bollinger_window" envconfig:"BOLLINGER_WINDOW"`
	BollingerK      float64 `json:"bollinger_k" envconfig:"BOLLINGER_K"`
}

// Refresh drives the background watchlist warmer.
type Refresh struct {
	Enabled   bool     `json:"enabled" envconfig:"REFRESH_ENABLED"`
	Cron      string   `json:"cron" envconfig:"REFRESH_CRON"`
	Watchlist []string `json:"watchlist" envconfig:"REFRESH_WATCHLIST"`
}

type Config struct {
	Server       Server       `json:"server"`
	Primary      string       `json:"primary_provider" envconfig:"PRIMARY_PROVIDER"`
	AlphaVantage AlphaVantage `json:"alphavantage"`
	Yahoo        Yahoo        `json:"yahoo"`
	Cache        CacheTTL     `json:"cache"`
	Indicators   Indicators   `json:"indicators"`
	Refresh      Refresh      `json:"refresh"`
}

func Default() Config {
	return Config{
		Server:  Server{Port: "8000", RequestTimeoutSec: 10},
		Primary: "yahoo",
		AlphaVantage: AlphaVantage{
			Enabled:              true,
			MaxRequestsPerMinute: 5,
			MaxRequestsPerDay:    500,
		},
		Yahoo: Yahoo{
			Enabled:              true,
			MaxRequestsPerMinute: 30,
			MaxRequestsPerDay:    2000,
		},
		Cache: CacheTTL{
			QuoteSec:      60,
			HistorySec:    3600,
			SearchSec:     86400,
			IndicatorsSec: 300,
			AnalysisSec:   300,
		},
		Indicators: Indicators{
			SMAWindows:      []int{20, 50, 200},
			RSIPeriod:       14,
			MACDFast:        12,
			MACDSlow:        26,
			MACDSignal:      9,
			BollingerWindow: 20,
			BollingerK:      2,
		},
		Refresh: Refresh{
			Enabled:   true,
			Cron:      "@every 5m",
			Watchlist: []string{"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "SPY"},
		},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, defaults are used. A .env file is loaded when present, then
// environment variables override individual fields.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process env: %w", err)
	}
	return cfg, nil
}

// Redacted returns a copy safe to expose on debug endpoints.
func (c Config) Redacted() Config {
	out := c
	out.AlphaVantage.APIKey = redact(c.AlphaVantage.APIKey)
	return out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
