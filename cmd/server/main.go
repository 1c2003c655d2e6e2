package main

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"stockapi/internal/catalog"
	"stockapi/internal/config"
	"stockapi/internal/httpx"
	"stockapi/internal/market"
	"stockapi/internal/provider"
	"stockapi/internal/provider/alphavantage"
	"stockapi/internal/provider/yahoo"
	"stockapi/internal/synth"
	"stockapi/internal/ta"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	providers := buildProviders(cfg, httpClient, log)
	if len(providers) == 0 {
		log.Warn("no upstream providers enabled, serving generated data only")
	}

	index, err := catalog.NewIndex()
	if err != nil {
		log.WithError(err).Fatal("build catalog index")
	}
	defer index.Close()

	ttls := ttlsFrom(cfg.Cache)
	svc := market.New(market.Config{
		Providers:       providers,
		Index:           index,
		Logger:          log,
		Synth:           newGenerator(cfg.Cache),
		TTL:             ttls,
		ProviderTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		Indicators:      taConfigFrom(cfg.Indicators),
	})

	if cfg.Refresh.Enabled && len(cfg.Refresh.Watchlist) > 0 {
		cr := cron.New()
		if _, err := cr.AddFunc(cfg.Refresh.Cron, func() { refreshWatchlist(svc, cfg.Refresh.Watchlist, log) }); err != nil {
			log.WithError(err).Fatal("schedule watchlist refresh")
		}
		cr.Start()
		defer cr.Stop()
		log.WithFields(logrus.Fields{"cron": cfg.Refresh.Cron, "symbols": len(cfg.Refresh.Watchlist)}).Info("watchlist refresh scheduled")
	}

	h := &handlers{svc: svc, cfg: cfg, log: log}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(log, h.routes()))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server")
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildProviders assembles the enabled adapters, primary first.
func buildProviders(cfg config.Config, httpClient *httpx.Client, log *logrus.Logger) []provider.Provider {
	var yahooP, alphaP provider.Provider

	if cfg.Yahoo.Enabled {
		yahooP = yahoo.New(httpClient)
	}
	if cfg.AlphaVantage.Enabled {
		if cfg.AlphaVantage.APIKey == "" {
			log.Warn("alphavantage.enabled=true but ALPHAVANTAGE_API_KEY not set; skipping")
		} else {
			client, err := alphavantage.NewClient(cfg.AlphaVantage.APIKey, alphavantage.WithHTTPClient(httpClient.HTTP))
			if err != nil {
				log.WithError(err).Warn("alphavantage client")
			} else {
				alphaP = alphavantage.NewAdapter(client)
			}
		}
	}

	var providers []provider.Provider
	if strings.EqualFold(cfg.Primary, "alphavantage") {
		for _, p := range []provider.Provider{alphaP, yahooP} {
			if p != nil {
				providers = append(providers, p)
			}
		}
		return providers
	}
	for _, p := range []provider.Provider{yahooP, alphaP} {
		if p != nil {
			providers = append(providers, p)
		}
	}
	return providers
}

func ttlsFrom(c config.CacheTTL) market.TTLConfig {
	return market.TTLConfig{
		Quote:      time.Duration(c.QuoteSec) * time.Second,
		History:    time.Duration(c.HistorySec) * time.Second,
		Search:     time.Duration(c.SearchSec) * time.Second,
		Indicators: time.Duration(c.IndicatorsSec) * time.Second,
		Analysis:   time.Duration(c.AnalysisSec) * time.Second,
	}
}

// newGenerator pins the fallback generator's epoch to the quote TTL so a
// generated quote stays stable exactly as long as a cached real one would.
func newGenerator(c config.CacheTTL) *synth.Generator {
	return synth.New(time.Duration(c.QuoteSec) * time.Second)
}

func taConfigFrom(c config.Indicators) ta.Config {
	return ta.Config{
		SMAWindows:      c.SMAWindows,
		RSIPeriod:       c.RSIPeriod,
		MACDFast:        c.MACDFast,
		MACDSlow:        c.MACDSlow,
		MACDSignal:      c.MACDSignal,
		BollingerWindow: c.BollingerWindow,
		BollingerK:      c.BollingerK,
	}
}

// refreshWatchlist warms the quote cache so interactive requests mostly hit it.
func refreshWatchlist(svc *market.Service, symbols []string, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, sym := range symbols {
		if _, err := svc.Quote(ctx, sym); err != nil {
			log.WithError(err).WithField("symbol", sym).Warn("watchlist refresh")
		}
	}
	log.WithField("symbols", len(symbols)).Debug("watchlist refreshed")
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		// Prefer best speed to reduce CPU usage since payloads are JSON
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(log *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("panic", rec).Error("handler panic")
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
