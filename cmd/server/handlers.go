package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"stockapi/internal/config"
	"stockapi/internal/market"
	"stockapi/internal/provider"
)

type handlers struct {
	svc *market.Service
	cfg config.Config
	log *logrus.Logger
}

func (h *handlers) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("GET /api/stocks/search", h.search)
	mux.HandleFunc("GET /api/stocks/{symbol}", h.quote)
	mux.HandleFunc("GET /api/stocks/{symbol}/history", h.history)
	mux.HandleFunc("GET /api/stocks/{symbol}/indicators", h.indicators)
	mux.HandleFunc("GET /api/stocks/{symbol}/analysis", h.analysis)
	mux.HandleFunc("GET /api/debug/config", h.debugConfig)
	return mux
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health())
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Quote(r.Context(), r.PathValue("symbol"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	period := provider.ParsePeriod(r.URL.Query().Get("period"))
	hist, err := h.svc.History(r.Context(), r.PathValue("symbol"), period)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *handlers) indicators(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Indicators(r.Context(), r.PathValue("symbol"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) analysis(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Analysis(r.Context(), r.PathValue("symbol"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) debugConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Redacted())
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, market.ErrInvalidSymbol), errors.Is(err, market.ErrInvalidQuery):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
