package market

import (
	"sync"
	"time"
)

// ProviderHealth is the externally visible state of one upstream.
type ProviderHealth struct {
	Name         string     `json:"name"`
	Healthy      bool       `json:"healthy"`
	Failures     int64      `json:"consecutive_failures"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastError    *time.Time `json:"last_error,omitempty"`
	LastErrorMsg string     `json:"last_error_message,omitempty"`
}

// Health is the service health snapshot.
type Health struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	CacheEntries  int              `json:"cache_entries"`
	Providers     []ProviderHealth `json:"providers"`
}

type providerState struct {
	failures     int64
	lastSuccess  time.Time
	lastError    time.Time
	lastErrorMsg string
}

// statusBoard records per-provider outcomes. A provider is healthy until it
// accumulates three consecutive failures.
type statusBoard struct {
	mu     sync.Mutex
	order  []string
	states map[string]*providerState
}

func newStatusBoard() *statusBoard {
	return &statusBoard{states: make(map[string]*providerState)}
}

func (b *statusBoard) track(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.states[name]; ok {
		return
	}
	b.order = append(b.order, name)
	b.states[name] = &providerState{}
}

func (b *statusBoard) ok(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[name]
	if !ok {
		return
	}
	st.failures = 0
	st.lastSuccess = time.Now().UTC()
}

func (b *statusBoard) fail(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[name]
	if !ok {
		return
	}
	st.failures++
	st.lastError = time.Now().UTC()
	st.lastErrorMsg = err.Error()
}

func (b *statusBoard) snapshot() []ProviderHealth {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ProviderHealth, 0, len(b.order))
	for _, name := range b.order {
		st := b.states[name]
		ph := ProviderHealth{
			Name:         name,
			Healthy:      st.failures < 3,
			Failures:     st.failures,
			LastErrorMsg: st.lastErrorMsg,
		}
		if !st.lastSuccess.IsZero() {
			t := st.lastSuccess
			ph.LastSuccess = &t
		}
		if !st.lastError.IsZero() {
			t := st.lastError
			ph.LastError = &t
		}
		out = append(out, ph)
	}
	return out
}

// Health reports service liveness along with cache occupancy and per-provider
// state. The service itself is always "ok" because generated data keeps every
// endpoint serving even with all upstreams down.
func (s *Service) Health() Health {
	return Health{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		CacheEntries:  s.cache.Len(),
		Providers:     s.status.snapshot(),
	}
}
