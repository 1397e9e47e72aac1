package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// InMemory keeps counters in process memory. Counters are lost on restart
// and are not shared between instances; use Redis for that.
type InMemory struct {
	mu      sync.Mutex
	limits  Limits
	window  time.Duration
	now     func() time.Time
	windows map[string]*window
}

func NewInMemory(limits Limits, windowLen time.Duration, now func() time.Time) *InMemory {
	if windowLen <= 0 {
		windowLen = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &InMemory{
		limits:  limits,
		window:  windowLen,
		now:     now,
		windows: make(map[string]*window),
	}
}

func (m *InMemory) Allow(_ context.Context, principal, tool string) error {
	limit, metered := m.limits.lookup(tool)
	if !metered {
		return nil
	}

	k := key(principal, tool)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[k]
	if !ok || now.Sub(w.start) >= m.window {
		m.windows[k] = &window{count: 1, start: now}
		return nil
	}
	if w.count >= limit {
		return exceeded(tool, limit)
	}
	w.count++
	return nil
}

// Cleanup drops windows that started at least two window lengths ago and
// returns how many were removed.
func (m *InMemory) Cleanup() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, w := range m.windows {
		if now.Sub(w.start) >= 2*m.window {
			delete(m.windows, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of live windows.
func (m *InMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *InMemory) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.window
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Cleanup()
		}
	}
}
