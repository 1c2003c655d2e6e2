package ratelimit

import (
	"sync"
	"time"
)

// Quota is a provider's request-rate ceiling. Zero bounds mean unlimited.
type Quota struct {
	Provider  string
	PerMinute int
	PerDay    int
}

type window struct {
	mu          sync.Mutex
	minuteStart time.Time
	minuteCount int
	dayStart    time.Time // UTC midnight
	dayCount    int
}

// Limiter tracks per-provider request counts against minute and calendar-day
// bounds. TryAcquire never blocks; a denied caller must fall back immediately.
type Limiter struct {
	mu      sync.RWMutex
	quotas  map[string]Quota
	windows map[string]*window
	now     func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		quotas:  make(map[string]Quota),
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Register sets the quota for a provider. Re-registering replaces the bounds
// but keeps the current counts.
func (l *Limiter) Register(q Quota) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quotas[q.Provider] = q
	if _, ok := l.windows[q.Provider]; !ok {
		l.windows[q.Provider] = &window{}
	}
}

// TryAcquire increments the provider's counters only if both the per-minute
// and per-day bounds are currently satisfied. Unknown providers are allowed.
func (l *Limiter) TryAcquire(provider string) bool {
	l.mu.RLock()
	q, known := l.quotas[provider]
	w := l.windows[provider]
	l.mu.RUnlock()
	if !known || w == nil {
		return true
	}

	now := l.now().UTC()
	w.mu.Lock()
	defer w.mu.Unlock()

	// Roll windows forward lazily.
	if now.Sub(w.minuteStart) >= time.Minute {
		w.minuteStart = now
		w.minuteCount = 0
	}
	if day := now.Truncate(24 * time.Hour); !day.Equal(w.dayStart) {
		w.dayStart = day
		w.dayCount = 0
	}

	if q.PerMinute > 0 && w.minuteCount >= q.PerMinute {
		return false
	}
	if q.PerDay > 0 && w.dayCount >= q.PerDay {
		return false
	}
	w.minuteCount++
	w.dayCount++
	return true
}
