package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter spaces requests to the same host by a fixed delay.
type HostLimiter struct {
	delay time.Duration

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

func NewHostLimiter(delay time.Duration) *HostLimiter {
	return &HostLimiter{delay: delay, hosts: make(map[string]*rate.Limiter)}
}

// Wait blocks until a request to the host of rawURL may be sent.
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil || l.delay <= 0 {
		return ctx.Err()
	}
	return l.limiter(hostOf(rawURL)).Wait(ctx)
}

func (l *HostLimiter) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.hosts[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.delay), 1)
		l.hosts[host] = lim
	}
	return lim
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
