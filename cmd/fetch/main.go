package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stockapi/internal/catalog"
	"stockapi/internal/config"
	"stockapi/internal/httpx"
	"stockapi/internal/market"
	"stockapi/internal/provider"
	"stockapi/internal/provider/alphavantage"
	"stockapi/internal/provider/yahoo"
	"stockapi/internal/synth"
)

func main() {
	var symbolsCSV string
	var op string
	var periodStr string
	var query string
	var timeout int
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "AAPL"), "comma-separated ticker symbols")
	flag.StringVar(&op, "op", "quote", "operation: quote, history, indicators, analysis, search")
	flag.StringVar(&periodStr, "period", string(provider.DefaultPeriod), "history period (1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y)")
	flag.StringVar(&query, "query", "", "search query (op=search)")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if timeout != 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	providers := make([]provider.Provider, 0, 2)
	if cfg.Yahoo.Enabled {
		providers = append(providers, yahoo.New(httpClient))
	}
	if cfg.AlphaVantage.Enabled && cfg.AlphaVantage.APIKey != "" {
		client, err := alphavantage.NewClient(cfg.AlphaVantage.APIKey, alphavantage.WithHTTPClient(httpClient.HTTP))
		if err != nil {
			log.WithError(err).Fatal("alphavantage client")
		}
		providers = append(providers, alphavantage.NewAdapter(client))
	}

	index, err := catalog.NewIndex()
	if err != nil {
		log.WithError(err).Fatal("catalog index")
	}
	defer index.Close()

	svc := market.New(market.Config{
		Providers:       providers,
		Index:           index,
		Logger:          log,
		Synth:           synth.New(time.Duration(cfg.Cache.QuoteSec) * time.Second),
		ProviderTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec+5)*time.Second)
	defer cancel()

	switch op {
	case "search":
		if query == "" {
			log.Fatal("op=search requires -query")
		}
		resp, err := svc.Search(ctx, query)
		if err != nil {
			log.WithError(err).Fatal("search")
		}
		printJSON(resp)
	case "quote", "history", "indicators", "analysis":
		symbols := splitCSV(symbolsCSV)
		if len(symbols) == 0 {
			log.Fatal("no symbols provided")
		}
		for _, sym := range symbols {
			v, err := resolve(ctx, svc, op, sym, provider.ParsePeriod(periodStr))
			if err != nil {
				log.WithError(err).WithField("symbol", sym).Error(op)
				continue
			}
			printJSON(v)
		}
	default:
		log.Fatalf("unknown op %q", op)
	}
}

func resolve(ctx context.Context, svc *market.Service, op, sym string, period provider.Period) (any, error) {
	switch op {
	case "quote":
		return svc.Quote(ctx, sym)
	case "history":
		return svc.History(ctx, sym, period)
	case "indicators":
		return svc.Indicators(ctx, sym)
	default:
		return svc.Analysis(ctx, sym)
	}
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 {
			return x
		}
	}
	return def
}
