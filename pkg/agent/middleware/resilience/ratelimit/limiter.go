// Package ratelimit provides outbound request pacing for LLM clients.
//
// Pacing smooths bursts against provider quotas. It never retries: a call
// that cannot be admitted before its context ends fails with the context error.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines pacing for one provider.
type Config struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// DefaultConfig is used for providers without explicit configuration.
//
//nolint:gochecknoglobals // package default
var DefaultConfig = Config{RequestsPerSecond: 2, Burst: 4}

// LimiterStats represents current limiter statistics.
type LimiterStats struct {
	Provider  string  `json:"provider"`
	Limit     float64 `json:"limit"`
	Burst     int     `json:"burst"`
	Tokens    float64 `json:"tokens"`
	WaitCount int64   `json:"wait_count"`
}

// Limiter paces requests for one provider with a token bucket.
type Limiter struct {
	mu        sync.Mutex
	provider  string
	limiter   *rate.Limiter
	waitCount int64
}

// NewLimiter creates a limiter for a provider. A non-positive rate disables pacing.
func NewLimiter(provider string, cfg Config) *Limiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Acquire blocks until a request may proceed. It reports whether the caller
// had to wait, so callers can record throttling.
func (l *Limiter) Acquire(ctx context.Context) (waited bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err //nolint:wrapcheck // callers inspect the context error directly
	}
	r := l.limiter.Reserve()
	if !r.OK() {
		return false, context.DeadlineExceeded
	}
	delay := r.Delay()
	if delay <= 0 {
		return false, nil
	}

	l.mu.Lock()
	l.waitCount++
	l.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true, nil
	case <-ctx.Done():
		r.Cancel()
		return true, ctx.Err() //nolint:wrapcheck // callers inspect the context error directly
	}
}

// GetStats returns current limiter statistics.
func (l *Limiter) GetStats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LimiterStats{
		Provider:  l.provider,
		Limit:     float64(l.limiter.Limit()),
		Burst:     l.limiter.Burst(),
		Tokens:    l.limiter.Tokens(),
		WaitCount: l.waitCount,
	}
}

// ProviderLimiterMap holds one limiter per provider, shared by every
// client of that provider.
type ProviderLimiterMap struct {
	mu       sync.Mutex
	configs  map[string]Config
	limiters map[string]*Limiter
}

// NewProviderLimiterMap creates a map with per-provider configuration.
// Providers without an entry use DefaultConfig.
func NewProviderLimiterMap(configs map[string]Config) *ProviderLimiterMap {
	cp := make(map[string]Config, len(configs))
	for k, v := range configs {
		cp[k] = v
	}
	return &ProviderLimiterMap{
		configs:  cp,
		limiters: make(map[string]*Limiter),
	}
}

// GetLimiter returns the limiter for a provider, creating it on first use.
func (m *ProviderLimiterMap) GetLimiter(provider string) *Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.limiters[provider]; ok {
		return l
	}
	cfg, ok := m.configs[provider]
	if !ok {
		cfg = DefaultConfig
	}
	l := NewLimiter(provider, cfg)
	m.limiters[provider] = l
	return l
}
